package harness

import (
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

// Trace entry types.
const (
	EntryCall  = "call"
	EntryEvent = "event"
)

// TraceEntry is one call or one committed event, in seq order.
type TraceEntry struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`

	// Call fields.
	Method string        `json:"method,omitempty"`
	Caller ident.Address `json:"caller,omitempty"`
	Target ident.Address `json:"target,omitempty"`
	Args   ir.IRObject   `json:"args,omitempty"`
	Status string        `json:"status,omitempty"`
	Error  string        `json:"error,omitempty"`
	Result ir.IRObject   `json:"result,omitempty"`

	// Event fields.
	Kind   ledger.Kind   `json:"kind,omitempty"`
	Source ident.Address `json:"source,omitempty"`
	Data   ir.IRObject   `json:"data,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEntry `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Lines is the symbolic rendering of Trace used for golden files.
	Lines []string `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Events returns the event entries of the trace.
func (r *Result) Events() []TraceEntry {
	var out []TraceEntry
	for _, e := range r.Trace {
		if e.Type == EntryEvent {
			out = append(out, e)
		}
	}
	return out
}

func callEntry(call ledger.Call, receipt ledger.Receipt) TraceEntry {
	return TraceEntry{
		Type:   EntryCall,
		Seq:    call.Seq,
		Method: call.Method,
		Caller: call.Caller,
		Target: call.Target,
		Args:   call.Args,
		Status: string(receipt.Status),
		Error:  receipt.ErrorCode,
		Result: receipt.Result,
	}
}

func eventEntry(ev ledger.Event) TraceEntry {
	return TraceEntry{
		Type:   EntryEvent,
		Seq:    ev.Seq,
		Kind:   ev.Kind,
		Source: ev.Source,
		Data:   ev.Data,
	}
}

// object is the canonical form of the entry, before symbol rendering.
func (e TraceEntry) object() ir.IRObject {
	obj := ir.IRObject{
		"type": ir.IRString(e.Type),
		"seq":  ir.IRInt(e.Seq),
	}
	if e.Type == EntryCall {
		obj["method"] = ir.IRString(e.Method)
		obj["caller"] = ir.Addr(e.Caller)
		obj["target"] = ir.Addr(e.Target)
		obj["args"] = orEmpty(e.Args)
		obj["status"] = ir.IRString(e.Status)
		obj["result"] = orEmpty(e.Result)
		if e.Error != "" {
			obj["error"] = ir.IRString(e.Error)
		}
		return obj
	}
	obj["kind"] = ir.IRString(string(e.Kind))
	obj["source"] = ir.Addr(e.Source)
	obj["data"] = orEmpty(e.Data)
	return obj
}

func orEmpty(obj ir.IRObject) ir.IRObject {
	if obj == nil {
		return ir.IRObject{}
	}
	return obj
}
