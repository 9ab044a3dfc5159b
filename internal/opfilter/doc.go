// Package opfilter implements the operator filter gate that guards
// transfer-enabling calls.
//
// A Gate holds the active filter identity of one resource. The zero identity
// disables filtering. When a filter is active, the gate asks a Registry
// whether the operator is allowed under that filter. Registry failures are
// resolved by Policy: fail open lets the call through, fail closed denies it.
//
// Registry variants are selected by configuration:
//
//	Noop    allows every operator
//	Memory  per-registrant block lists with subscriptions
//	Expr    an expr-lang boolean expression over registrant and operator
//	grpc    a remote registry (see package grpcregistry)
package opfilter
