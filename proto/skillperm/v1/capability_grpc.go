// Package skillpermv1 holds the gRPC service definition of the capability
// service. Requests and responses are google.protobuf.Struct messages, so the
// descriptor is registered by hand instead of generated.
package skillpermv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const CapabilityService_ServiceName = "skillperm.v1.CapabilityService"

const (
	CapabilityService_Check_FullMethodName           = "/skillperm.v1.CapabilityService/Check"
	CapabilityService_GetCapabilities_FullMethodName = "/skillperm.v1.CapabilityService/GetCapabilities"
	CapabilityService_SetPermission_FullMethodName   = "/skillperm.v1.CapabilityService/SetPermission"
	CapabilityService_ListPermissions_FullMethodName = "/skillperm.v1.CapabilityService/ListPermissions"
	CapabilityService_SetRestricted_FullMethodName   = "/skillperm.v1.CapabilityService/SetRestricted"
	CapabilityService_ListAuditEvents_FullMethodName = "/skillperm.v1.CapabilityService/ListAuditEvents"
)

// CapabilityServiceClient is the client API for CapabilityService
type CapabilityServiceClient interface {
	Check(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCapabilities(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetPermission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListPermissions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetRestricted(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListAuditEvents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type capabilityServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCapabilityServiceClient(cc grpc.ClientConnInterface) CapabilityServiceClient {
	return &capabilityServiceClient{cc}
}

func (c *capabilityServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *capabilityServiceClient) Check(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CapabilityService_Check_FullMethodName, in, opts...)
}

func (c *capabilityServiceClient) GetCapabilities(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CapabilityService_GetCapabilities_FullMethodName, in, opts...)
}

func (c *capabilityServiceClient) SetPermission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CapabilityService_SetPermission_FullMethodName, in, opts...)
}

func (c *capabilityServiceClient) ListPermissions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CapabilityService_ListPermissions_FullMethodName, in, opts...)
}

func (c *capabilityServiceClient) SetRestricted(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CapabilityService_SetRestricted_FullMethodName, in, opts...)
}

func (c *capabilityServiceClient) ListAuditEvents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CapabilityService_ListAuditEvents_FullMethodName, in, opts...)
}

// CapabilityServiceServer is the server API for CapabilityService.
// Implementations should embed UnimplementedCapabilityServiceServer.
type CapabilityServiceServer interface {
	Check(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCapabilities(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPermission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPermissions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetRestricted(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAuditEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedCapabilityServiceServer returns Unimplemented for every method
type UnimplementedCapabilityServiceServer struct{}

func (UnimplementedCapabilityServiceServer) Check(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Check not implemented")
}
func (UnimplementedCapabilityServiceServer) GetCapabilities(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCapabilities not implemented")
}
func (UnimplementedCapabilityServiceServer) SetPermission(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SetPermission not implemented")
}
func (UnimplementedCapabilityServiceServer) ListPermissions(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPermissions not implemented")
}
func (UnimplementedCapabilityServiceServer) SetRestricted(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SetRestricted not implemented")
}
func (UnimplementedCapabilityServiceServer) ListAuditEvents(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAuditEvents not implemented")
}

func RegisterCapabilityServiceServer(s grpc.ServiceRegistrar, srv CapabilityServiceServer) {
	s.RegisterService(&CapabilityService_ServiceDesc, srv)
}

type structMethod func(CapabilityServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CapabilityServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CapabilityServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CapabilityService_ServiceDesc is the grpc.ServiceDesc for CapabilityService
var CapabilityService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: CapabilityService_ServiceName,
	HandlerType: (*CapabilityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Check",
			Handler:    unaryHandler(CapabilityService_Check_FullMethodName, CapabilityServiceServer.Check),
		},
		{
			MethodName: "GetCapabilities",
			Handler:    unaryHandler(CapabilityService_GetCapabilities_FullMethodName, CapabilityServiceServer.GetCapabilities),
		},
		{
			MethodName: "SetPermission",
			Handler:    unaryHandler(CapabilityService_SetPermission_FullMethodName, CapabilityServiceServer.SetPermission),
		},
		{
			MethodName: "ListPermissions",
			Handler:    unaryHandler(CapabilityService_ListPermissions_FullMethodName, CapabilityServiceServer.ListPermissions),
		},
		{
			MethodName: "SetRestricted",
			Handler:    unaryHandler(CapabilityService_SetRestricted_FullMethodName, CapabilityServiceServer.SetRestricted),
		},
		{
			MethodName: "ListAuditEvents",
			Handler:    unaryHandler(CapabilityService_ListAuditEvents_FullMethodName, CapabilityServiceServer.ListAuditEvents),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skillperm/v1/capability.proto",
}
