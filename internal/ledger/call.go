package ledger

import (
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
)

// Call is one request submitted to the host. Calls are the append-only input
// log: replaying them in seq order rebuilds every resource.
type Call struct {
	ID            string        `json:"id"`
	Seq           int64         `json:"seq"`
	Caller        ident.Address `json:"caller"`
	Method        string        `json:"method"`
	Target        ident.Address `json:"target"`
	Args          ir.IRObject   `json:"args"`
	At            int64         `json:"at"` // unix seconds supplied by the host environment
	Digest        string        `json:"digest"`
	EngineVersion string        `json:"engine_version"`
	IRVersion     string        `json:"ir_version"`
}

// Status is the outcome of a call.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Receipt records the outcome of a call. A failed receipt carries the error
// code and no events.
type Receipt struct {
	CallID       string      `json:"call_id"`
	Status       Status      `json:"status"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Result       ir.IRObject `json:"result"`
}

// Entry pairs a call with its receipt.
type Entry struct {
	Call    Call
	Receipt Receipt
}
