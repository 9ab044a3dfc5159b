package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/opfilter"
	"github.com/roach88/editions/internal/testutil"
)

// Harness is the scenario execution environment.
type Harness struct {
	host    *host.Host
	clock   *testutil.ManualClock
	symbols *symbols
	logger  *slog.Logger
}

// Run executes a scenario against a fresh in-memory host and returns the
// result. The error return is reserved for scenarios that cannot run at all
// (bad symbols, host failures); failed expectations are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	start := time.Time{}
	if scenario.Start != "" {
		t, err := time.Parse(time.RFC3339, scenario.Start)
		if err != nil {
			return nil, fmt.Errorf("parse start: %w", err)
		}
		start = t
	}

	policy := opfilter.DefaultPolicy()
	if scenario.Policy != nil {
		policy = opfilter.Policy{FailOpen: scenario.Policy.FailOpen, OwnerBypass: scenario.Policy.OwnerBypass}
	}

	h := &Harness{
		clock:   testutil.NewManualClock(start),
		symbols: newSymbols(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.host = host.New(host.Options{
		Registry: opfilter.NewMemory(),
		Policy:   policy,
		Factory:  FactoryAddress,
		Template: TemplateAddress,
		IDs:      testutil.NewSequentialIDs(scenario.Name),
		Now:      h.clock.Now,
		Logger:   h.logger,
	})

	for name, list := range scenario.Lists {
		h.symbols.generate(name, list)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{Host: h.host, symbols: h.symbols}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	result.Lines = h.render(result.Trace)
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		h.clock.Advance(d)
		return nil
	}

	caller, err := h.symbols.address(step.Caller)
	if err != nil {
		return fmt.Errorf("caller: %w", err)
	}
	target, err := h.target(step, caller)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	args, err := h.symbols.resolveObject(step.Args)
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}

	out, err := h.host.Submit(ctx, caller, step.Call, target, args)
	if err != nil {
		return err
	}
	result.Trace = append(result.Trace, callEntry(out.Call, out.Receipt))
	for _, ev := range out.Events {
		result.Trace = append(result.Trace, eventEntry(ev))
	}

	h.logger.Info("step executed",
		"step", i,
		"method", step.Call,
		"status", out.Receipt.Status,
		"error_code", out.Receipt.ErrorCode,
	)

	if msg := h.checkExpect(step, out); msg != "" {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Call, msg))
		return nil
	}
	if out.OK() {
		for name, field := range step.Save {
			v, ok := out.Receipt.Result[field]
			if !ok {
				result.AddError(fmt.Sprintf("steps[%d] %s: save %s: result has no field %q", i, step.Call, name, field))
				continue
			}
			h.symbols.set(name, v)
		}
	}
	return nil
}

// target resolves the step target, defaulting per method family.
func (h *Harness) target(step Step, caller ident.Address) (ident.Address, error) {
	if step.Target != "" {
		return h.symbols.address(step.Target)
	}
	switch step.Call {
	case host.MethodFactoryCreate:
		return FactoryAddress, nil
	case host.MethodRegistryBlock, host.MethodRegistryUnblock:
		return caller, nil
	}
	return ident.Zero, nil
}

func (h *Harness) checkExpect(step Step, out host.Outcome) string {
	want := "ok"
	if step.Expect != nil && step.Expect.Status != "" {
		want = step.Expect.Status
	}
	if string(out.Receipt.Status) != want {
		if out.Err != nil {
			return fmt.Sprintf("expected status %s, got %s (%s)", want, out.Receipt.Status, faults.CodeOf(out.Err))
		}
		return fmt.Sprintf("expected status %s, got %s", want, out.Receipt.Status)
	}
	if step.Expect == nil {
		return ""
	}
	if step.Expect.Error != "" && step.Expect.Error != out.Receipt.ErrorCode {
		return fmt.Sprintf("expected error %s, got %s", step.Expect.Error, out.Receipt.ErrorCode)
	}
	if step.Expect.Result != nil {
		want, err := h.symbols.resolveObject(step.Expect.Result)
		if err != nil {
			return fmt.Sprintf("expect.result: %v", err)
		}
		if !matchValue(want, out.Receipt.Result) {
			return fmt.Sprintf("result %v does not contain %v", ir.ToAny(out.Receipt.Result), ir.ToAny(want))
		}
	}
	return ""
}

// render produces one canonical JSON line per trace entry with symbols
// substituted for identities and saved values.
func (h *Harness) render(trace []TraceEntry) []string {
	names := h.symbols.reverse()
	lines := make([]string, 0, len(trace))
	for _, e := range trace {
		data, err := ir.MarshalCanonical(renderWith(e.object(), names))
		if err != nil {
			lines = append(lines, fmt.Sprintf("!render seq %d: %v", e.Seq, err))
			continue
		}
		lines = append(lines, string(data))
	}
	return lines
}

// events converts event entries back to ledger events for assertions.
func events(trace []TraceEntry) []ledger.Event {
	var out []ledger.Event
	for _, e := range trace {
		if e.Type == EntryEvent {
			out = append(out, ledger.Event{Seq: e.Seq, Source: e.Source, Kind: e.Kind, Data: e.Data})
		}
	}
	return out
}
