package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/editions/internal/blobstore"
	"github.com/roach88/editions/internal/edition"
	"github.com/roach88/editions/internal/factory"
	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/opfilter"
	"github.com/roach88/editions/internal/store"
)

const tracerName = "github.com/roach88/editions/internal/host"

// Options configure a Host.
type Options struct {
	// Store persists calls, receipts and events. Nil keeps everything in memory.
	Store *store.Store

	// Blobs backs blob.write and batch mints. Nil uses an in-memory store.
	Blobs blobstore.Store

	// Registry answers operator filter queries for every edition.
	Registry opfilter.Registry

	// Policy is the gate failure policy for every edition.
	Policy opfilter.Policy

	// Factory and Template identify the edition factory.
	Factory  ident.Address
	Template ident.Address

	// DefaultFilter is the initial filter of editions whose create call does
	// not name one.
	DefaultFilter ident.Address

	IDs    IDGenerator
	Now    func() time.Time
	Tracer trace.Tracer
	Logger *slog.Logger
}

// Outcome is the result of one call.
type Outcome struct {
	Call    ledger.Call
	Receipt ledger.Receipt
	Events  []ledger.Event

	// Err is the call's failure; nil when Receipt.Status is ok.
	Err error
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool {
	return o.Receipt.Status == ledger.StatusOK
}

// Host is the single-writer call executor.
type Host struct {
	mu sync.Mutex

	store    *store.Store
	blobs    blobstore.Store
	registry opfilter.Registry
	factory  *factory.Factory
	clock    *ledger.Clock
	journal  *ledger.Journal
	ids      IDGenerator
	now      func() time.Time
	tracer   trace.Tracer
	logger   *slog.Logger

	defaultFilter ident.Address

	// at is the timestamp of the call being executed.
	at int64

	// halted is set when a call changed state that could not be recorded.
	// In-memory state no longer matches the ledger, so Submit refuses work.
	halted error
}

// ErrHalted is returned by Submit after a call could not be recorded.
// Reopen the ledger with Open to continue.
var ErrHalted = faults.New(faults.CodeInternal, "host halted after a failed ledger write")

// New creates a host with empty state. Use Open to resume a persisted ledger.
func New(opts Options) *Host {
	if opts.Blobs == nil {
		opts.Blobs = blobstore.NewMemory()
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &Host{
		store:         opts.Store,
		blobs:         opts.Blobs,
		registry:      opts.Registry,
		clock:         ledger.NewClock(),
		ids:           opts.IDs,
		now:           opts.Now,
		tracer:        opts.Tracer,
		logger:        opts.Logger,
		defaultFilter: opts.DefaultFilter,
	}
	h.journal = ledger.NewJournal(h.clock)

	policy := opts.Policy
	h.factory = factory.New(factory.Options{
		Address:  opts.Factory,
		Template: opts.Template,
		Deps: edition.Deps{
			Blobs:    opts.Blobs,
			Registry: opts.Registry,
			Policy:   &policy,
			Now:      h.callTime,
			Logger:   opts.Logger,
		},
		Journal: h.journal,
		Logger:  opts.Logger,
	})
	return h
}

// Open creates a host and rebuilds its state from opts.Store by replaying
// the persisted calls. Any divergence between the replayed and recorded
// outcomes fails with the first mismatch.
func Open(ctx context.Context, opts Options) (*Host, error) {
	h := New(opts)
	if h.store == nil {
		return h, nil
	}
	report, err := h.replay(ctx)
	if err != nil {
		return nil, err
	}
	if len(report.Mismatches) > 0 {
		m := report.Mismatches[0]
		return nil, fmt.Errorf("replay diverged at seq %d (call %s): %s", m.Seq, m.CallID, m.Reason)
	}
	h.logger.Debug("ledger replayed", "calls", report.Calls, "events", report.Events)
	return h, nil
}

// Submit executes one call and persists its outcome. A call that fails
// returns a failed Outcome and a nil error; the error return is reserved for
// failures to record the call.
func (h *Host) Submit(ctx context.Context, caller ident.Address, method string, target ident.Address, args ir.IRObject) (Outcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.halted != nil {
		return Outcome{}, ErrHalted.With("cause", h.halted.Error())
	}
	if args == nil {
		args = ir.IRObject{}
	}
	at := h.now().Unix()
	digest, err := ir.CallDigest(caller.Hex(), method, target.Hex(), args, at)
	if err != nil {
		return Outcome{}, faults.Wrap(faults.CodeInvalidArgument, "arguments are not canonical", err)
	}

	call := ledger.Call{
		ID:            h.ids.Generate(),
		Seq:           h.clock.Next(),
		Caller:        caller,
		Method:        method,
		Target:        target,
		Args:          args,
		At:            at,
		Digest:        digest,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}

	out, err := h.execute(ctx, call)
	if err != nil {
		return Outcome{}, h.halt(call, err)
	}

	if h.store != nil {
		if err := h.store.WriteCall(ctx, out.Call, out.Receipt, out.Events); err != nil {
			return Outcome{}, h.halt(call, fmt.Errorf("record call %s: %w", call.ID, err))
		}
	}

	h.logger.Info("call executed",
		"call_id", call.ID,
		"seq", call.Seq,
		"method", call.Method,
		"target", call.Target.Hex(),
		"status", out.Receipt.Status,
		"error_code", out.Receipt.ErrorCode,
		"events", len(out.Events),
	)
	return out, nil
}

func (h *Host) halt(call ledger.Call, err error) error {
	h.halted = err
	h.logger.Error("host halted",
		"call_id", call.ID,
		"seq", call.Seq,
		"method", call.Method,
		"error", err,
	)
	return err
}

// execute runs call inside a journal window. The returned error is an
// internal failure; call failures are reported in the Outcome.
func (h *Host) execute(ctx context.Context, call ledger.Call) (Outcome, error) {
	ctx, span := h.tracer.Start(ctx, call.Method, trace.WithAttributes(
		attribute.String("editions.call_id", call.ID),
		attribute.Int64("editions.seq", call.Seq),
		attribute.String("editions.method", call.Method),
		attribute.String("editions.caller", call.Caller.Hex()),
		attribute.String("editions.target", call.Target.Hex()),
	))
	defer span.End()

	h.at = call.At
	h.journal.Begin(call.ID)

	result, callErr := h.dispatch(ctx, call)
	if result == nil {
		result = ir.IRObject{}
	}

	out := Outcome{Call: call, Err: callErr}
	if callErr != nil {
		h.journal.Abort()
		out.Receipt = ledger.Receipt{
			CallID:       call.ID,
			Status:       ledger.StatusFailed,
			ErrorCode:    string(faults.CodeOf(callErr)),
			ErrorMessage: callErr.Error(),
			Result:       ir.IRObject{},
		}
		span.RecordError(callErr)
		span.SetStatus(otelcodes.Error, string(faults.CodeOf(callErr)))
		return out, nil
	}

	events, err := h.journal.Commit()
	if err != nil {
		span.SetStatus(otelcodes.Error, "commit failed")
		return Outcome{}, fmt.Errorf("commit events of call %s: %w", call.ID, err)
	}
	out.Events = events
	out.Receipt = ledger.Receipt{
		CallID: call.ID,
		Status: ledger.StatusOK,
		Result: result,
	}
	span.SetAttributes(attribute.Int("editions.events", len(events)))
	span.SetStatus(otelcodes.Ok, "")
	return out, nil
}

// callTime is the "now" editions observe: the timestamp of the current call.
func (h *Host) callTime() time.Time {
	return time.Unix(h.at, 0)
}

// Seq returns the last assigned seq.
func (h *Host) Seq() int64 {
	return h.clock.Current()
}

// Factory returns the factory identity.
func (h *Host) Factory() ident.Address {
	return h.factory.Address()
}

// Predict returns the address an edition named name would get.
func (h *Host) Predict(name string) ident.Address {
	return h.factory.Predict(name)
}

// Edition returns a summary of the edition at addr.
func (h *Host) Edition(addr ident.Address) (edition.Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ed, ok := h.factory.Get(addr)
	if !ok {
		return edition.Info{}, false
	}
	return ed.Info(), true
}

// Editions returns summaries of all editions in creation order.
func (h *Host) Editions() []edition.Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	addrs := h.factory.Editions()
	out := make([]edition.Info, 0, len(addrs))
	for _, addr := range addrs {
		ed, _ := h.factory.Get(addr)
		out = append(out, ed.Info())
	}
	return out
}

// View runs fn with the edition at addr while holding the host lock.
func (h *Host) View(addr ident.Address, fn func(*edition.Edition) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ed, ok := h.factory.Get(addr)
	if !ok {
		return unknownEdition(addr)
	}
	return fn(ed)
}

// Events returns the events committed by this host instance (including
// replayed ones), filtered like ledger.Journal.Filter.
func (h *Host) Events(source ident.Address, kind ledger.Kind) []ledger.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.journal.Filter(source, kind)
}

// Blobs returns the host's blob store.
func (h *Host) Blobs() blobstore.Store {
	return h.blobs
}

func unknownEdition(addr ident.Address) error {
	return faults.New(faults.CodeInvalidArgument, "unknown edition").With("edition", addr.Hex())
}
