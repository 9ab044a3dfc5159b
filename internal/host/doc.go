// Package host executes calls against the factory, its editions, the blob
// store and the operator registry.
//
// # Execution Model
//
// The host is the single writer. Submit takes a lock, so calls run one at a
// time and strictly in seq order. Every call:
//
//  1. receives a call id, a seq from the shared logical clock and a
//     timestamp (At) that editions use as "now"
//  2. runs inside a journal window: events emitted by the components stay
//     pending until the call succeeds
//  3. commits its events (stamped with seq and content-addressed ids) or,
//     on failure, discards them
//  4. is persisted together with its receipt and events in one transaction
//
// A failed call therefore leaves no state and no events, only a failed
// receipt carrying the error code.
//
// # Replay
//
// Component state lives in memory. Open rebuilds it by re-executing the
// persisted calls in seq order with their recorded ids and timestamps. Since
// calls and events draw from the same clock and every input is recorded,
// replay reproduces the same receipts and the same event ids. Open compares
// each re-executed outcome with the stored one and fails on divergence.
package host
