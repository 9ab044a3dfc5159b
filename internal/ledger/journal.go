package ledger

import (
	"fmt"

	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
)

// Journal buffers the events of the call in flight and keeps the committed
// history. Not safe for concurrent use; the host serializes calls.
type Journal struct {
	clock     *Clock
	callID    string
	pending   []Event
	committed []Event
}

// NewJournal creates a journal stamping events from clock.
// A nil clock gets a private one.
func NewJournal(clock *Clock) *Journal {
	if clock == nil {
		clock = NewClock()
	}
	return &Journal{clock: clock}
}

// Begin starts collecting events for callID, dropping anything left pending.
func (j *Journal) Begin(callID string) {
	j.callID = callID
	j.pending = j.pending[:0]
}

// Emit implements Emitter.
func (j *Journal) Emit(source ident.Address, kind Kind, data ir.IRObject) {
	if data == nil {
		data = ir.IRObject{}
	}
	j.pending = append(j.pending, Event{
		CallID: j.callID,
		Source: source,
		Kind:   kind,
		Data:   data,
	})
}

// Mark returns a savepoint for RollbackTo.
func (j *Journal) Mark() int {
	return len(j.pending)
}

// RollbackTo discards events emitted after mark.
func (j *Journal) RollbackTo(mark int) {
	if mark < 0 {
		mark = 0
	}
	if mark < len(j.pending) {
		j.pending = j.pending[:mark]
	}
}

// Pending returns a copy of the uncommitted events.
func (j *Journal) Pending() []Event {
	out := make([]Event, len(j.pending))
	copy(out, j.pending)
	return out
}

// Commit stamps pending events with seq and id, appends them to the history
// and returns them. On error nothing is committed.
func (j *Journal) Commit() ([]Event, error) {
	stamped := make([]Event, len(j.pending))
	for i, ev := range j.pending {
		ev.Seq = j.clock.Next()
		id, err := ir.EventID(ev.CallID, ev.Seq, ev.Source.Hex(), string(ev.Kind), ev.Data)
		if err != nil {
			j.pending = j.pending[:0]
			return nil, fmt.Errorf("commit %s event: %w", ev.Kind, err)
		}
		ev.ID = id
		stamped[i] = ev
	}
	j.committed = append(j.committed, stamped...)
	j.pending = j.pending[:0]
	j.callID = ""
	return stamped, nil
}

// Abort discards the pending events of the call in flight.
func (j *Journal) Abort() {
	j.pending = j.pending[:0]
	j.callID = ""
}

// Events returns a copy of the committed history in seq order.
func (j *Journal) Events() []Event {
	out := make([]Event, len(j.committed))
	copy(out, j.committed)
	return out
}

// Filter returns committed events matching source and kind.
// A zero source or empty kind matches everything.
func (j *Journal) Filter(source ident.Address, kind Kind) []Event {
	var out []Event
	for _, ev := range j.committed {
		if !source.IsZero() && ev.Source != source {
			continue
		}
		if kind != "" && ev.Kind != kind {
			continue
		}
		out = append(out, ev)
	}
	return out
}
