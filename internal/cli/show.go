package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/edition"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ledger"
	"github.com/roach88/editions/internal/store"
)

// editionView is the output of show for one edition.
type editionView struct {
	edition.Info
	Holder  string `json:"holder,omitempty"`
	Balance *int64 `json:"balance,omitempty"`
}

func (v editionView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) at %s\n", v.Name, v.Symbol, v.Address.Hex())
	fmt.Fprintf(&b, "  owner:          %s\n", v.Owner.Hex())
	fmt.Fprintf(&b, "  filter:         %s\n", filterLabel(v.ActiveFilter))
	fmt.Fprintf(&b, "  supply:         %d/%s\n", v.TotalSupply, supplyCap(v.MaxSupply))
	fmt.Fprintf(&b, "  royalty:        %d bps\n", v.RoyaltyBPS)
	if v.EndOfMintPeriod > 0 {
		fmt.Fprintf(&b, "  mint period:    ends %d (ended: %t)\n", v.EndOfMintPeriod, v.MintingEnded)
	}
	keys := make([]string, 0, len(v.Metadata))
	for k := range v.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  meta %s: %s\n", k, v.Metadata[k])
	}
	if v.Balance != nil {
		fmt.Fprintf(&b, "  balance of %s: %d\n", v.Holder, *v.Balance)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// editionsView is the output of show without an edition.
type editionsView struct {
	Editions []edition.Info `json:"editions"`
}

func (v editionsView) String() string {
	if len(v.Editions) == 0 {
		return "No editions."
	}
	lines := make([]string, 0, len(v.Editions))
	for _, info := range v.Editions {
		lines = append(lines, fmt.Sprintf("%s  %-20s %d/%s  filter %s",
			info.Address.Hex(), info.Name, info.TotalSupply, supplyCap(info.MaxSupply), filterLabel(info.ActiveFilter)))
	}
	return strings.Join(lines, "\n")
}

func supplyCap(n int64) string {
	if n == 0 {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

func filterLabel(filter ident.Address) string {
	if filter.IsZero() {
		return "none"
	}
	return filter.Hex()
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	var holder string

	cmd := &cobra.Command{
		Use:   "show [edition]",
		Short: "List editions or show one edition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			f := newFormatter(cmd, opts)
			if len(args) == 0 {
				return f.Success(editionsView{Editions: s.host.Editions()})
			}

			addr, err := identityArg("edition", args[0])
			if err != nil {
				return err
			}
			var view editionView
			err = s.host.View(addr, func(ed *edition.Edition) error {
				view.Info = ed.Info()
				if holder != "" {
					h, err := identityArg("--holder", holder)
					if err != nil {
						return err
					}
					balance := ed.BalanceOf(h)
					view.Holder, view.Balance = h.Hex(), &balance
				}
				return nil
			})
			if err != nil {
				var exitErr *ExitError
				if errors.As(err, &exitErr) {
					return err
				}
				return failFault(f, err)
			}
			return f.Success(view)
		},
	}

	cmd.Flags().StringVar(&holder, "holder", "", "also show this holder's balance")
	return cmd
}

// eventsView is the output of events.
type eventsView struct {
	Events []eventView `json:"events"`
}

func (v eventsView) String() string {
	if len(v.Events) == 0 {
		return "No events."
	}
	lines := make([]string, 0, len(v.Events))
	for _, ev := range v.Events {
		lines = append(lines, ev.String())
	}
	return strings.Join(lines, "\n")
}

// NewEventsCommand creates the events command.
func NewEventsCommand(opts *RootOptions) *cobra.Command {
	var (
		source, kind, callID string
		after                int64
		limit                int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List committed events from the ledger",
		Long: `List committed events in seq order, read directly from the ledger without
replaying it. Failed calls commit no events.

Examples:
  editions events --source 0x5d3a... --kind Transfer
  editions events --after 120 --limit 50 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.EventFilter{
				Kind:     ledger.Kind(kind),
				CallID:   callID,
				AfterSeq: after,
				Limit:    limit,
			}
			if source != "" {
				addr, err := identityArg("--source", source)
				if err != nil {
					return err
				}
				filter.Source = addr
			}

			s, err := openLedger(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			events, err := s.store.ReadEvents(cmd.Context(), filter)
			if err != nil {
				return WrapExitError(ExitCommandError, "read events", err)
			}
			view := eventsView{Events: make([]eventView, 0, len(events))}
			for _, ev := range events {
				view.Events = append(view.Events, newEventView(ev))
			}
			return newFormatter(cmd, opts).Success(view)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "emitting edition or identity")
	cmd.Flags().StringVar(&kind, "kind", "", "event kind, e.g. Transfer")
	cmd.Flags().StringVar(&callID, "call", "", "call id")
	cmd.Flags().Int64Var(&after, "after", 0, "only events after this seq")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events (0 = all)")
	return cmd
}
