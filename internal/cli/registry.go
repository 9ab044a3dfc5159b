package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/ir"
	"github.com/roach88/editions/internal/opfilter"
	"github.com/roach88/editions/internal/opfilter/grpcregistry"
)

// NewRegistryCommand creates the registry command group.
func NewRegistryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Edit, query and serve the operator filter registry",
		Long: `The registry maps a registrant (usually a filter address) to the operators
it blocks. Only the registrant itself may edit its list, so block and unblock
edit the list of the --as identity. Edits are ledger calls and survive
restarts with the memory registry.`,
	}
	cmd.AddCommand(newRegistryEditCommand(opts, "block", "Block operators under the caller's list", host.MethodRegistryBlock))
	cmd.AddCommand(newRegistryEditCommand(opts, "unblock", "Unblock operators under the caller's list", host.MethodRegistryUnblock))
	cmd.AddCommand(newRegistryCheckCommand(opts))
	cmd.AddCommand(newRegistryServeCommand(opts))
	return cmd
}

func newRegistryEditCommand(opts *RootOptions, use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <operator>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registrant, err := caller(opts)
			if err != nil {
				return err
			}
			operators := make(ir.IRArray, 0, len(args))
			for _, a := range args {
				op, err := addrArg("operator", a)
				if err != nil {
					return err
				}
				operators = append(operators, op)
			}
			return runCall(cmd, opts, method, registrant, ir.IRObject{"operators": operators})
		},
	}
}

// checkView is the output of registry check.
type checkView struct {
	Registrant string `json:"registrant"`
	Operator   string `json:"operator"`
	Allowed    bool   `json:"allowed"`
}

func (v checkView) String() string {
	verdict := "allowed"
	if !v.Allowed {
		verdict = "blocked"
	}
	return fmt.Sprintf("%s is %s by %s", v.Operator, verdict, v.Registrant)
}

func newRegistryCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <registrant> <operator>",
		Short: "Ask the configured registry whether an operator is allowed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registrant, err := registrantArg(args[0])
			if err != nil {
				return err
			}
			operator, err := identityArg("operator", args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			f := newFormatter(cmd, opts)
			allowed, err := s.registry.IsAllowed(ctx, registrant, operator)
			if err != nil {
				return failFault(f, err)
			}
			return f.Success(checkView{Registrant: registrant.Hex(), Operator: operator.Hex(), Allowed: allowed})
		},
	}
}

// registrantArg accepts "canonical" for the canonical filter.
func registrantArg(s string) (ident.Address, error) {
	if s == "canonical" {
		return opfilter.CanonicalFilter, nil
	}
	return identityArg("registrant", s)
}

func newRegistryServeCommand(opts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over gRPC",
		Long: `Serve the configured registry, rebuilt from the ledger, over gRPC so other
hosts can use it with registry kind "grpc". The list is a snapshot taken at
startup. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			if _, remote := s.registry.(*grpcregistry.Client); remote {
				return NewExitError(ExitCommandError, "refusing to serve a remote registry")
			}

			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return WrapExitError(ExitCommandError, "listen", err)
			}
			f := newFormatter(cmd, opts)
			if err := f.Success(serveView{Listen: lis.Addr().String(), Registry: s.cfg.Registry.Kind}); err != nil {
				lis.Close()
				return err
			}
			s.logger.Info("registry serving", "listen", lis.Addr().String(), "registry", s.cfg.Registry.Kind)
			return serveRegistry(ctx, lis, s.registry)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:7460", "listen address")
	return cmd
}

// serveView is printed once the listener is bound.
type serveView struct {
	Listen   string `json:"listen"`
	Registry string `json:"registry"`
}

func (v serveView) String() string {
	return fmt.Sprintf("serving %s registry on %s", v.Registry, v.Listen)
}

// serveRegistry serves registry on lis until ctx is done.
func serveRegistry(ctx context.Context, lis net.Listener, registry opfilter.Registry) error {
	srv := grpc.NewServer()
	grpcregistry.RegisterRegistryServer(srv, &grpcregistry.Server{Registry: registry})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	select {
	case <-ctx.Done():
		srv.GracefulStop()
		err := <-errCh
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}
