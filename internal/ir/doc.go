// Package ir provides the canonical value representation used for call
// arguments, call results and event payloads.
//
// Everything that is persisted to the ledger or hashed into an identifier is
// an IRObject serialized with MarshalCanonical (RFC 8785 key ordering, NFC
// strings, no floats, no null). Two equal payloads always produce identical
// bytes, which makes event ids and replay comparisons deterministic.
//
// ir depends only on ident; every other internal package may import it.
package ir
