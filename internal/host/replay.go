package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/store"
)

// Mismatch is one divergence between a recorded call and its re-execution.
type Mismatch struct {
	Seq    int64  `json:"seq"`
	CallID string `json:"call_id"`
	Reason string `json:"reason"`
}

// Report summarizes a replay.
type Report struct {
	Calls      int        `json:"calls"`
	Events     int        `json:"events"`
	Failed     int        `json:"failed"`
	Mismatches []Mismatch `json:"mismatches"`
}

// OK reports whether every call replayed to its recorded outcome.
func (r Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Replay rebuilds a host from opts.Store and reports every call whose
// re-execution disagrees with what was recorded. Unlike Open it does not stop
// at the first mismatch.
func Replay(ctx context.Context, opts Options) (*Host, Report, error) {
	if opts.Store == nil {
		return nil, Report{}, errors.New("replay: no store")
	}
	h := New(opts)
	report, err := h.replay(ctx)
	if err != nil {
		return nil, Report{}, err
	}
	return h, report, nil
}

func (h *Host) replay(ctx context.Context) (Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := Report{Mismatches: []Mismatch{}}

	history, err := h.store.ReadHistory(ctx)
	if err != nil {
		return report, fmt.Errorf("replay: read history: %w", err)
	}
	recorded, err := h.store.ReadEvents(ctx, store.EventFilter{})
	if err != nil {
		return report, fmt.Errorf("replay: read events: %w", err)
	}
	byCall := make(map[string][]ledger.Event)
	for _, ev := range recorded {
		byCall[ev.CallID] = append(byCall[ev.CallID], ev)
	}

	for _, entry := range history {
		call := entry.Call
		mismatch := func(format string, args ...any) {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq:    call.Seq,
				CallID: call.ID,
				Reason: fmt.Sprintf(format, args...),
			})
		}

		if seq := h.clock.Next(); seq != call.Seq {
			mismatch("seq gap: expected %d", seq)
		}
		digest, err := ir.CallDigest(call.Caller.Hex(), call.Method, call.Target.Hex(), call.Args, call.At)
		if err != nil || digest != call.Digest {
			mismatch("digest does not match call content")
		}

		out, err := h.execute(ctx, call)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: %w", call.Seq, err)
		}
		report.Calls++
		report.Events += len(out.Events)
		if !out.OK() {
			report.Failed++
		}

		want := entry.Receipt
		if out.Receipt.Status != want.Status {
			mismatch("status %s, recorded %s", out.Receipt.Status, want.Status)
			continue
		}
		if out.Receipt.ErrorCode != want.ErrorCode {
			mismatch("error code %q, recorded %q", out.Receipt.ErrorCode, want.ErrorCode)
			continue
		}
		if !sameObject(out.Receipt.Result, want.Result) {
			mismatch("result differs from recorded result")
			continue
		}
		if reason := compareEvents(out.Events, byCall[call.ID]); reason != "" {
			mismatch("%s", reason)
		}
	}
	return report, nil
}

func sameObject(a, b ir.IRObject) bool {
	ab, err := ir.MarshalCanonical(a)
	if err != nil {
		return false
	}
	bb, err := ir.MarshalCanonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func compareEvents(got, want []ledger.Event) string {
	if len(got) != len(want) {
		return fmt.Sprintf("emitted %d events, recorded %d", len(got), len(want))
	}
	for i := range got {
		if got[i].ID != want[i].ID {
			return fmt.Sprintf("event %d (%s) id differs from recorded %s", i, got[i].Kind, want[i].Kind)
		}
	}
	return ""
}
