// Package ledger records the durable audit trail of edition resources.
//
// Components emit events into a Journal while a call executes. Events stay
// pending until the call succeeds and the host commits them; a failed call
// aborts its pending events, so observers never see effects of a call that
// did not complete. Savepoints (Mark/RollbackTo) let a component discard the
// events of a failed sub-step without touching earlier ones.
//
// Committed events are stamped with a monotonic logical seq from Clock and a
// content-addressed id (ir.EventID). Ordering never depends on wall time.
package ledger
