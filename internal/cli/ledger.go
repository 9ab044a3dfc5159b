package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/store"
)

// statusView is the output of status.
type statusView struct {
	Database string         `json:"database"`
	LastSeq  int64          `json:"last_seq"`
	Calls    int            `json:"calls"`
	Methods  map[string]int `json:"methods"`
	Editions int            `json:"editions"`
	Registry string         `json:"registry"`
	Blobs    string         `json:"blobs"`

	order []string // method print order
}

func (v statusView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ledger:   %s (last seq %d)\n", v.Database, v.LastSeq)
	fmt.Fprintf(&b, "registry: %s, blobs: %s\n", v.Registry, v.Blobs)
	fmt.Fprintf(&b, "editions: %d\n", v.Editions)
	fmt.Fprintf(&b, "calls:    %d", v.Calls)
	for _, m := range v.order {
		if n := v.Methods[m]; n > 0 {
			fmt.Fprintf(&b, "\n  %-40s %d", m, n)
		}
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			view := statusView{
				Database: s.cfg.Database,
				Methods:  map[string]int{},
				Editions: len(s.host.Editions()),
				Registry: s.cfg.Registry.Kind,
				Blobs:    s.cfg.Blobs.Backend,
				order:    host.Methods(),
			}
			if view.LastSeq, err = s.store.LastSeq(ctx); err != nil {
				return WrapExitError(ExitCommandError, "read ledger", err)
			}
			if view.Calls, err = s.store.CountCalls(ctx, ""); err != nil {
				return WrapExitError(ExitCommandError, "read ledger", err)
			}
			for _, m := range view.order {
				n, err := s.store.CountCalls(ctx, m)
				if err != nil {
					return WrapExitError(ExitCommandError, "read ledger", err)
				}
				if n > 0 {
					view.Methods[m] = n
				}
			}
			return newFormatter(cmd, opts).Success(view)
		},
	}
}

// receiptView is the output of receipt.
type receiptView struct {
	Call    ledger.Call    `json:"call"`
	Receipt ledger.Receipt `json:"receipt"`
	Events  []eventView    `json:"events"`
}

func (v receiptView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "call %s (seq %d, at %d)\n", v.Call.ID, v.Call.Seq, v.Call.At)
	fmt.Fprintf(&b, "  %s by %s", v.Call.Method, v.Call.Caller.Hex())
	if !v.Call.Target.IsZero() {
		fmt.Fprintf(&b, " on %s", v.Call.Target.Hex())
	}
	fmt.Fprintf(&b, "\n  args: %s\n", renderValue(v.Call.Args))
	if v.Receipt.Status == ledger.StatusFailed {
		fmt.Fprintf(&b, "  failed [%s]: %s", v.Receipt.ErrorCode, v.Receipt.ErrorMessage)
		return b.String()
	}
	fmt.Fprintf(&b, "  ok: %s", renderValue(v.Receipt.Result))
	for _, ev := range v.Events {
		b.WriteString("\n")
		b.WriteString(ev.String())
	}
	return b.String()
}

// NewReceiptCommand creates the receipt command.
func NewReceiptCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <call-id>",
		Short: "Show a recorded call, its receipt and its events",
		Long: `Show one recorded call. Failed calls keep their error code and message and
have no events.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openLedger(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			f := newFormatter(cmd, opts)
			entry, err := s.store.ReadEntry(ctx, args[0])
			if errors.Is(err, sql.ErrNoRows) {
				return f.Fail(ExitFailure, "NOT_FOUND", fmt.Sprintf("no call %s", args[0]), nil)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "read ledger", err)
			}
			events, err := s.store.ReadEvents(ctx, store.EventFilter{CallID: entry.Call.ID})
			if err != nil {
				return WrapExitError(ExitCommandError, "read events", err)
			}

			view := receiptView{Call: entry.Call, Receipt: entry.Receipt, Events: make([]eventView, 0, len(events))}
			if view.Call.Args == nil {
				view.Call.Args = ir.IRObject{}
			}
			for _, ev := range events {
				view.Events = append(view.Events, newEventView(ev))
			}
			return f.Success(view)
		},
	}
}
