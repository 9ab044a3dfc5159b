// Package harness runs YAML scenarios against an in-memory host and checks
// the resulting call and event trace.
//
// # Scenario Format
//
//	name: gate_filter
//	description: "What this scenario validates"
//	start: "2026-01-01T00:00:00Z"   # optional wall clock start
//	lists:
//	  recipients: { label: "recipient-%03d", count: 500 }
//	steps:
//	  - call: factory.create
//	    caller: "@owner-a"
//	    args: { name: alpha, operator_filter: "@filter-f" }
//	    save: { edition: address }
//	  - advance: 24h
//	  - call: edition.setApprovalForAll
//	    caller: "@owner-a"
//	    target: "$edition"
//	    args: { operator: "@operator-x" }
//	    expect: { status: failed, error: OPERATOR_NOT_ALLOWED }
//	assertions:
//	  - type: event_count
//	    kind: Transfer
//	    count: 500
//
// # Symbols
//
// "@label" names an identity: ident.Labeled(label), except for the builtins
// @factory, @template, @canonical and @zero. "$name" refers to a value saved
// by an earlier step or to a generated list. Traces and golden files render
// identities and saved values back to their symbols, so golden files do not
// depend on derived addresses or content hashes.
//
// # Assertion Types
//
//   - event_count: exactly N events of a kind (optionally from one source)
//   - event_order: kinds appear in the given order (gaps allowed)
//   - event_contains: some event of a kind carries a data subset
//   - final_state: edition summary fields and holder balances
//
// # Deterministic Testing
//
// Every run uses a manual wall clock (testutil.ManualClock), sequential call
// ids (testutil.SequentialIDs) and fresh in-memory stores, so the same
// scenario always yields the same trace.
package harness
