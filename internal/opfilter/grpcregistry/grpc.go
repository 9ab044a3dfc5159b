// Package grpcregistry serves and consumes an operator registry over gRPC.
//
// The service uses protobuf well-known types (structpb, wrapperspb, emptypb)
// so no protoc toolchain is needed:
//
//	service Registry {
//	  rpc IsAllowed(google.protobuf.Struct) returns (google.protobuf.BoolValue);
//	  rpc Subscribe(google.protobuf.Struct) returns (google.protobuf.Empty);
//	}
//
// IsAllowed takes {registrant, operator}; Subscribe takes {registrant, source}.
// Addresses are 0x-prefixed hex strings.
package grpcregistry

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName     = "editions.opfilter.v1.Registry"
	isAllowedMethod = "/" + serviceName + "/IsAllowed"
	subscribeMethod = "/" + serviceName + "/Subscribe"
)

// RegistryServer is the server API for the Registry service.
type RegistryServer interface {
	IsAllowed(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	Subscribe(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// UnimplementedRegistryServer can be embedded to have forward compatible implementations.
type UnimplementedRegistryServer struct{}

func (UnimplementedRegistryServer) IsAllowed(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method IsAllowed not implemented")
}
func (UnimplementedRegistryServer) Subscribe(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Subscribe not implemented")
}

// RegisterRegistryServer registers the Registry service on a gRPC server.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&Registry_ServiceDesc, srv)
}

// RegistryClient is the client API for the Registry service.
type RegistryClient interface {
	IsAllowed(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type registryClient struct{ cc grpc.ClientConnInterface }

func NewRegistryClient(cc grpc.ClientConnInterface) RegistryClient { return &registryClient{cc: cc} }

func (c *registryClient) IsAllowed(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, isAllowedMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, subscribeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Registry_IsAllowed_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).IsAllowed(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: isAllowedMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).IsAllowed(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_Subscribe_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Subscribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: subscribeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).Subscribe(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Registry_ServiceDesc is the grpc.ServiceDesc for the Registry service.
var Registry_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IsAllowed", Handler: _Registry_IsAllowed_Handler},
		{MethodName: "Subscribe", Handler: _Registry_Subscribe_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registry.proto",
}
