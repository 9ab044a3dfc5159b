package grpcregistry

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/opfilter"
)

// Server exposes an opfilter.Registry over the Registry gRPC service.
type Server struct {
	UnimplementedRegistryServer
	Registry opfilter.Registry
}

// IsAllowed serves Registry.IsAllowed.
func (s *Server) IsAllowed(ctx context.Context, in *structpb.Struct) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Registry == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing registry")
	}
	registrant, err := field(in, "registrant")
	if err != nil {
		return nil, err
	}
	operator, err := field(in, "operator")
	if err != nil {
		return nil, err
	}
	allowed, err := s.Registry.IsAllowed(ctx, registrant, operator)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return wrapperspb.Bool(allowed), nil
}

// Subscribe serves Registry.Subscribe. Registries without subscriptions
// answer Unimplemented.
func (s *Server) Subscribe(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	if s == nil || s.Registry == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing registry")
	}
	sub, ok := s.Registry.(opfilter.Subscriber)
	if !ok {
		return nil, status.Error(codes.Unimplemented, "registry does not support subscriptions")
	}
	registrant, err := field(in, "registrant")
	if err != nil {
		return nil, err
	}
	source, err := field(in, "source")
	if err != nil {
		return nil, err
	}
	if err := sub.Subscribe(ctx, registrant, source); err != nil {
		if errors.Is(err, opfilter.ErrSubscriptionsUnsupported) {
			return nil, status.Error(codes.Unimplemented, err.Error())
		}
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return &emptypb.Empty{}, nil
}

func field(in *structpb.Struct, name string) (ident.Address, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return ident.Zero, status.Errorf(codes.InvalidArgument, "missing %s", name)
	}
	a, err := ident.Parse(v.GetStringValue())
	if err != nil {
		return ident.Zero, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
	}
	return a, nil
}
