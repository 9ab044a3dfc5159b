package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/opfilter"
)

// NewFilterCommand creates the filter command group.
func NewFilterCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Manage an edition's operator filter (owner only)",
		Long: `Point an edition at an operator filter registrant, switch to the canonical
curated filter, or disable filtering. Use "canonical" for the canonical
filter address.`,
	}

	cmd.AddCommand(editionCommand(opts, "set <edition> <filter>", "Use a filter registrant",
		host.MethodSetOperatorFilter, 1, func(args []string) (ir.IRObject, error) {
			if args[0] == "canonical" {
				return ir.IRObject{"filter": ir.Addr(opfilter.CanonicalFilter)}, nil
			}
			filter, err := addrArg("filter", args[0])
			if err != nil {
				return nil, err
			}
			return ir.IRObject{"filter": filter}, nil
		}))
	cmd.AddCommand(editionCommand(opts, "enable-default <edition>", "Use the canonical filter",
		host.MethodEnableDefaultOperatorFilter, 0, nil))
	cmd.AddCommand(editionCommand(opts, "disable <edition>", "Disable operator filtering",
		host.MethodDisableOperatorFilter, 0, nil))

	return cmd
}
