// Package edition implements the owned, transfer-gated edition resource.
//
// An Edition is created uninitialized at a factory-derived address and
// becomes usable only after Initialize has run once. Initialize composes the
// ownership and operator-filter sub-initializers inside a single
// initialization window.
//
// Every mutating operation validates fully before it mutates, so a failed
// call leaves the edition unchanged and emits nothing. MintBatch reads its
// recipient list from a blob in fixed-size slices and mints in list order.
package edition
