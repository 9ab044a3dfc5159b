package grpcregistry

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/opfilter"
)

// Client implements opfilter.Registry and opfilter.Subscriber over the
// Registry gRPC service. Every transport or server failure surfaces as
// REGISTRY_UNAVAILABLE so the gate's failure policy decides the outcome.
type Client struct {
	cc     *grpc.ClientConn
	client RegistryClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

// Dial creates a client for target. The connection is established lazily.
func Dial(target string, timeout time.Duration) (*Client, error) {
	cc, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, faults.Wrap(faults.CodeRegistryUnavailable, "dial registry", err).With("endpoint", target)
	}
	return &Client{cc: cc, client: NewRegistryClient(cc), Timeout: timeout}, nil
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface, timeout time.Duration) *Client {
	return &Client{client: NewRegistryClient(cc), Timeout: timeout}
}

// Close releases the connection if the client owns it.
func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// IsAllowed asks the server whether operator may act under registrant's list.
func (c *Client) IsAllowed(ctx context.Context, registrant, operator ident.Address) (bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	in, err := structpb.NewStruct(map[string]any{
		"registrant": registrant.Hex(),
		"operator":   operator.Hex(),
	})
	if err != nil {
		return false, faults.Wrap(faults.CodeInternal, "encode request", err)
	}
	reply, err := c.client.IsAllowed(ctx, in)
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

// Subscribe asks the server to make registrant follow source. A server whose
// registry cannot subscribe yields opfilter.ErrSubscriptionsUnsupported.
func (c *Client) Subscribe(ctx context.Context, registrant, source ident.Address) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	in, err := structpb.NewStruct(map[string]any{
		"registrant": registrant.Hex(),
		"source":     source.Hex(),
	})
	if err != nil {
		return faults.Wrap(faults.CodeInternal, "encode request", err)
	}
	if _, err := c.client.Subscribe(ctx, in); err != nil {
		if status.Code(err) == codes.Unimplemented {
			return opfilter.ErrSubscriptionsUnsupported
		}
		return mapRPC(err)
	}
	return nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

func mapRPC(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return faults.Wrap(faults.CodeRegistryUnavailable, "registry call failed", err)
	}
	return faults.Wrap(faults.CodeRegistryUnavailable, "registry call failed", err).
		With("grpc_code", st.Code().String())
}
