package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/editions/internal/factory"
	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/opfilter"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Symbol     string
	Owner      string
	RoyaltyBPS int64
	MaxSupply  int64
	MintPeriod time.Duration
	Filter     string
	Meta       []string // key=value
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an edition through the factory",
		Long: `Create and initialize an edition. Its address is derived from the factory,
the template and the normalized name, so "editions predict" shows it in
advance and a second edition with an equivalent name is rejected.

Examples:
  editions create alpha --as @artist --symbol ALPHA --filter canonical
  editions create beta --as @artist --mint-period 72h --max-supply 100 \
      --meta image=ipfs://bafy... --meta animation_url=ipfs://bafy...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := opts.callArgs(args[0])
			if err != nil {
				return err
			}
			return runCall(cmd, rootOpts, host.MethodFactoryCreate, ident.Zero, callArgs)
		},
	}

	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "token symbol")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "initial owner (defaults to the caller)")
	cmd.Flags().Int64Var(&opts.RoyaltyBPS, "royalty-bps", 0, "royalty in basis points (0-10000)")
	cmd.Flags().Int64Var(&opts.MaxSupply, "max-supply", 0, "supply cap (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.MintPeriod, "mint-period", 0, "mint window from creation (0 = open ended)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", `initial operator filter ("canonical", "none" or an identity)`)
	cmd.Flags().StringArrayVar(&opts.Meta, "meta", nil, "metadata entry key=value (repeatable)")

	return cmd
}

func (o *CreateOptions) callArgs(name string) (ir.IRObject, error) {
	metadata := ir.IRObject{}
	for _, kv := range o.Meta {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --meta %q: want key=value", kv))
		}
		metadata[k] = ir.IRString(v)
	}
	if o.MintPeriod < 0 || o.MintPeriod%time.Second != 0 {
		return nil, NewExitError(ExitCommandError, "--mint-period must be a non-negative whole number of seconds")
	}

	args := ir.IRObject{
		"name":        ir.IRString(name),
		"symbol":      ir.IRString(o.Symbol),
		"metadata":    metadata,
		"royalty_bps": ir.IRInt(o.RoyaltyBPS),
		"max_supply":  ir.IRInt(o.MaxSupply),
		"mint_period": ir.IRInt(int64(o.MintPeriod / time.Second)),
	}
	if o.Owner != "" {
		owner, err := addrArg("--owner", o.Owner)
		if err != nil {
			return nil, err
		}
		args["owner"] = owner
	}
	switch o.Filter {
	case "":
	case "canonical":
		args["operator_filter"] = ir.Addr(opfilter.CanonicalFilter)
	case "none":
		args["operator_filter"] = ir.Addr(ident.Zero)
	default:
		filter, err := addrArg("--filter", o.Filter)
		if err != nil {
			return nil, err
		}
		args["operator_filter"] = filter
	}
	return args, nil
}

// predictView is the output of predict.
type predictView struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Factory string `json:"factory"`
}

func (v predictView) String() string {
	return fmt.Sprintf("%s -> %s (factory %s)", v.Name, v.Address, v.Factory)
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict <name>",
		Short: "Show the address an edition name would get",
		Long: `Compute the deterministic address of an edition from the configured factory
and template identities. Does not open the ledger.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			addr := factory.DeriveAddress(cfg.Factory, cfg.Template, factory.Salt(args[0]))
			return newFormatter(cmd, opts).Success(predictView{
				Name:    args[0],
				Address: addr.Hex(),
				Factory: cfg.Factory.Hex(),
			})
		},
	}
}
