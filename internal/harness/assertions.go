package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/editions/internal/edition"
	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

// AssertionContext gives assertions access to the final host state.
type AssertionContext struct {
	Host    *host.Host
	symbols *symbols
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	evs := events(result.Trace)
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventCount:
			err = assertEventCount(evs, a, actx)
		case AssertEventOrder:
			err = assertEventOrder(evs, a)
		case AssertEventContains:
			err = assertEventContains(evs, a, actx)
		case AssertFinalState:
			err = assertFinalState(a, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// selectEvents filters by kind and, when set, by source symbol.
func selectEvents(evs []ledger.Event, a Assertion, actx *AssertionContext) ([]ledger.Event, error) {
	var source ident.Address
	if a.Source != "" {
		var err error
		if source, err = actx.symbols.address(a.Source); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
	}
	var out []ledger.Event
	for _, ev := range evs {
		if string(ev.Kind) != a.Kind {
			continue
		}
		if a.Source != "" && ev.Source != source {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func assertEventCount(evs []ledger.Event, a Assertion, actx *AssertionContext) error {
	matched, err := selectEvents(evs, a, actx)
	if err != nil {
		return err
	}
	if len(matched) != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d events", len(matched)),
		}
	}
	return nil
}

// assertEventOrder checks that kinds appear in order. Kinds don't need to be
// consecutive; each expected kind matches the first occurrence after the
// previous match.
func assertEventOrder(evs []ledger.Event, a Assertion) error {
	pos := 0
	for _, want := range a.Kinds {
		found := false
		for pos < len(evs) {
			kind := string(evs[pos].Kind)
			pos++
			if kind == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Kinds),
				Actual:   fmt.Sprintf("%s not found in order; trace kinds: %s", want, kindList(evs)),
			}
		}
	}
	return nil
}

func assertEventContains(evs []ledger.Event, a Assertion, actx *AssertionContext) error {
	matched, err := selectEvents(evs, a, actx)
	if err != nil {
		return err
	}
	want, err := actx.symbols.resolveObject(a.Data)
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	for _, ev := range matched {
		if matchValue(want, ev.Data) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("%s event with data %v", a.Kind, ir.ToAny(want)),
		Actual:   fmt.Sprintf("%d %s events, none matching", len(matched), a.Kind),
	}
}

func assertFinalState(a Assertion, actx *AssertionContext) error {
	addr, err := actx.symbols.address(a.Edition)
	if err != nil {
		return fmt.Errorf("edition: %w", err)
	}
	info, ok := actx.Host.Edition(addr)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("edition %s", a.Edition),
			Actual:   "edition not found",
		}
	}

	if len(a.Expect) > 0 {
		want, err := actx.symbols.resolveObject(a.Expect)
		if err != nil {
			return fmt.Errorf("expect: %w", err)
		}
		got := infoObject(info)
		for _, key := range want.SortedKeys() {
			actual, exists := got[key]
			if !exists {
				return &AssertionError{
					Type:     AssertFinalState,
					Expected: fmt.Sprintf("field %q to exist", key),
					Actual:   fmt.Sprintf("fields: %v", got.SortedKeys()),
				}
			}
			if !matchValue(want[key], actual) {
				return &AssertionError{
					Type:     AssertFinalState,
					Expected: fmt.Sprintf("%s = %v", key, ir.ToAny(want[key])),
					Actual:   fmt.Sprintf("%s = %v", key, ir.ToAny(actual)),
				}
			}
		}
	}

	holders := make([]string, 0, len(a.Balances))
	for h := range a.Balances {
		holders = append(holders, h)
	}
	sort.Strings(holders)
	for _, ref := range holders {
		holder, err := actx.symbols.address(ref)
		if err != nil {
			return fmt.Errorf("balances: %w", err)
		}
		var got int64
		err = actx.Host.View(addr, func(ed *edition.Edition) error {
			got = ed.BalanceOf(holder)
			return nil
		})
		if err != nil {
			return fmt.Errorf("balances: %w", err)
		}
		if got != a.Balances[ref] {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("balance of %s = %d", ref, a.Balances[ref]),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
	}
	return nil
}

func infoObject(info edition.Info) ir.IRObject {
	metadata := make(ir.IRObject, len(info.Metadata))
	for k, v := range info.Metadata {
		metadata[k] = ir.IRString(v)
	}
	return ir.IRObject{
		"address":            ir.Addr(info.Address),
		"name":               ir.IRString(info.Name),
		"symbol":             ir.IRString(info.Symbol),
		"owner":              ir.Addr(info.Owner),
		"active_filter":      ir.Addr(info.ActiveFilter),
		"total_supply":       ir.IRInt(info.TotalSupply),
		"max_supply":         ir.IRInt(info.MaxSupply),
		"royalty_bps":        ir.IRInt(info.RoyaltyBPS),
		"end_of_mint_period": ir.IRInt(info.EndOfMintPeriod),
		"minting_ended":      ir.IRBool(info.MintingEnded),
		"metadata":           metadata,
	}
}

// matchValue compares with subset semantics for objects and exact equality
// otherwise.
func matchValue(want, got ir.IRValue) bool {
	if wantObj, ok := want.(ir.IRObject); ok {
		gotObj, ok := got.(ir.IRObject)
		if !ok {
			return false
		}
		for k, v := range wantObj {
			g, exists := gotObj[k]
			if !exists || !matchValue(v, g) {
				return false
			}
		}
		return true
	}
	if wantArr, ok := want.(ir.IRArray); ok {
		gotArr, ok := got.(ir.IRArray)
		if !ok || len(wantArr) != len(gotArr) {
			return false
		}
		for i := range wantArr {
			if !matchValue(wantArr[i], gotArr[i]) {
				return false
			}
		}
		return true
	}
	return want == got
}

func kindList(evs []ledger.Event) string {
	kinds := make([]string, len(evs))
	for i, ev := range evs {
		kinds[i] = string(ev.Kind)
	}
	return strings.Join(kinds, ",")
}
