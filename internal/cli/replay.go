package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/host"
)

// replayView is the output of replay.
type replayView struct {
	Database string `json:"database"`
	Seq      int64  `json:"seq"`
	host.Report
}

func (v replayView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Replayed %d calls (%d failed) and %d events from %s", v.Calls, v.Failed, v.Events, v.Database)
	if v.OK() {
		b.WriteString("\nAll outcomes match the ledger.")
		return b.String()
	}
	fmt.Fprintf(&b, "\n%d mismatches:", len(v.Mismatches))
	for _, m := range v.Mismatches {
		fmt.Fprintf(&b, "\n  seq %d (call %s): %s", m.Seq, m.CallID, m.Reason)
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Re-execute the ledger and verify every recorded outcome",
		Long: `Re-execute every recorded call in seq order against fresh state and compare
the outcome (status, error code, result and event ids) with what was
recorded. Unlike the implicit replay other commands run, every mismatch is
reported.

Exit codes:
  0 - Every call replayed to its recorded outcome
  1 - At least one mismatch
  2 - Command error (bad config, unreadable database, etc.)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openLedger(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			h, report, err := host.Replay(cmd.Context(), s.hostOptions())
			if err != nil {
				return WrapExitError(ExitCommandError, "replay", err)
			}

			f := newFormatter(cmd, opts)
			view := replayView{Database: s.cfg.Database, Seq: h.Seq(), Report: report}
			if !report.OK() {
				if f.Format == "json" {
					return f.Fail(ExitFailure, "REPLAY_DIVERGED",
						fmt.Sprintf("%d calls diverged from the ledger", len(report.Mismatches)), view)
				}
				fmt.Fprintln(f.Writer, view)
				return &ExitError{Code: ExitFailure, Message: "replay diverged", Reported: true}
			}
			return f.Success(view)
		},
	}
}
