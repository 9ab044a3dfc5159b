package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
)

// eventView is the printable form of a committed event.
type eventView struct {
	ID     string      `json:"id"`
	Seq    int64       `json:"seq"`
	CallID string      `json:"call_id"`
	Kind   ledger.Kind `json:"kind"`
	Source string      `json:"source"`
	Data   ir.IRObject `json:"data"`
}

func newEventView(ev ledger.Event) eventView {
	return eventView{
		ID:     ev.ID,
		Seq:    ev.Seq,
		CallID: ev.CallID,
		Kind:   ev.Kind,
		Source: ev.Source.Hex(),
		Data:   ev.Data,
	}
}

func (v eventView) String() string {
	return fmt.Sprintf("%6d  %-22s %s %s", v.Seq, v.Kind, v.Source, renderValue(v.Data))
}

// callView is the printable outcome of a successful call.
type callView struct {
	CallID string      `json:"call_id"`
	Seq    int64       `json:"seq"`
	Method string      `json:"method"`
	Target string      `json:"target,omitempty"`
	Result ir.IRObject `json:"result"`
	Events []eventView `json:"events"`
}

func newCallView(out host.Outcome) callView {
	v := callView{
		CallID: out.Call.ID,
		Seq:    out.Call.Seq,
		Method: out.Call.Method,
		Result: out.Receipt.Result,
		Events: make([]eventView, 0, len(out.Events)),
	}
	if !out.Call.Target.IsZero() {
		v.Target = out.Call.Target.Hex()
	}
	for _, ev := range out.Events {
		v.Events = append(v.Events, newEventView(ev))
	}
	return v
}

func (v callView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ok (seq %d, call %s)", v.Method, v.Seq, v.CallID)
	for _, k := range v.Result.SortedKeys() {
		fmt.Fprintf(&b, "\n  %s: %s", k, renderValue(v.Result[k]))
	}
	if len(v.Events) > 0 {
		b.WriteString("\nevents:")
		for _, ev := range v.Events {
			b.WriteString("\n")
			b.WriteString(ev.String())
		}
	}
	return b.String()
}

// renderValue prints strings bare and everything else as canonical JSON.
func renderValue(v ir.IRValue) string {
	if s, ok := v.(ir.IRString); ok {
		return string(s)
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// runCall submits one call as the --as identity and prints its outcome.
// factory.create always targets the configured factory. A failed call is
// printed with its error code and exits with ExitFailure.
func runCall(cmd *cobra.Command, opts *RootOptions, method string, target ident.Address, args ir.IRObject) error {
	f := newFormatter(cmd, opts)
	from, err := caller(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	if method == host.MethodFactoryCreate {
		target = s.host.Factory()
	}
	f.VerboseLog("submitting %s as %s", method, from.Hex())
	out, err := s.host.Submit(ctx, from, method, target, args)
	if err != nil {
		return WrapExitError(ExitFailure, "record call", err)
	}
	if !out.OK() {
		code := out.Receipt.ErrorCode
		msg := strings.TrimPrefix(out.Receipt.ErrorMessage, code+": ")
		return f.Fail(ExitFailure, code, msg, map[string]any{
			"call_id": out.Call.ID,
			"seq":     out.Call.Seq,
			"method":  method,
		})
	}
	return f.Success(newCallView(out))
}

// editionCommand builds a command that submits method against the edition
// named by the first positional argument. build turns the remaining
// arguments into call arguments.
func editionCommand(opts *RootOptions, use, short, method string, nargs int, build func(args []string) (ir.IRObject, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := identityArg("edition", args[0])
			if err != nil {
				return err
			}
			callArgs := ir.IRObject{}
			if build != nil {
				if callArgs, err = build(args[1:]); err != nil {
					return err
				}
			}
			return runCall(cmd, opts, method, target, callArgs)
		},
	}
}

// addrArg parses an identity argument into a call argument value.
func addrArg(what, s string) (ir.IRValue, error) {
	addr, err := identityArg(what, s)
	if err != nil {
		return nil, err
	}
	return ir.Addr(addr), nil
}

// tokenArg parses a token id.
func tokenArg(s string) (ir.IRValue, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid token id %q", s))
	}
	return ir.IRInt(id), nil
}

// failFault reports err with its taxonomy code and exits with ExitFailure.
func failFault(f *OutputFormatter, err error) error {
	var fe *faults.Error
	if errors.As(err, &fe) {
		var details any
		if len(fe.Details) > 0 {
			details = fe.Details
		}
		return f.Fail(ExitFailure, string(fe.Code), fe.Message, details)
	}
	return f.Fail(ExitFailure, string(faults.CodeOf(err)), err.Error(), nil)
}
