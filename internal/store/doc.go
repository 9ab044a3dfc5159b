// Package store provides SQLite-backed durable storage for the editions ledger.
//
// The store is append-only:
//   - Calls: every request submitted to the host, in seq order
//   - Receipts: exactly one outcome per call (ok or failed with a code)
//   - Events: the audit trail committed by successful calls
//   - Blobs: write-once byte storage addressed by pointer
//
// A call, its receipt and its events are written in a single transaction, so
// the ledger never holds events of a call without its receipt.
//
// All queries order by seq ASC (logical clock), never by timestamps, so
// reading the ledger back is deterministic.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
