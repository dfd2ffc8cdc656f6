package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages are protobuf well-known types, so the service needs no generated
// code: requests and replies are structpb.Struct documents.

const serviceName = "dashboard.control.v1.DashboardControl"

const (
	methodHealth           = "/" + serviceName + "/Health"
	methodListActivity     = "/" + serviceName + "/ListActivity"
	methodRunCron          = "/" + serviceName + "/RunCron"
	methodToggleCron       = "/" + serviceName + "/ToggleCron"
	methodSendAgentMessage = "/" + serviceName + "/SendAgentMessage"
)

// DashboardControlServer is the server API for the control plane.
type DashboardControlServer interface {
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListActivity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunCron(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleCron(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendAgentMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterDashboardControlServer(s grpc.ServiceRegistrar, srv DashboardControlServer) {
	s.RegisterService(&DashboardControlServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Service descriptor
// -----------------------------------------------------------------------------

var DashboardControlServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DashboardControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: healthHandler},
		{MethodName: "ListActivity", Handler: structHandler(methodListActivity, DashboardControlServer.ListActivity)},
		{MethodName: "RunCron", Handler: structHandler(methodRunCron, DashboardControlServer.RunCron)},
		{MethodName: "ToggleCron", Handler: structHandler(methodToggleCron, DashboardControlServer.ToggleCron)},
		{MethodName: "SendAgentMessage", Handler: structHandler(methodSendAgentMessage, DashboardControlServer.SendAgentMessage)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dashboard/control/v1/control.proto",
}

// -----------------------------------------------------------------------------

func healthHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardControlServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodHealth}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DashboardControlServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

type structMethod func(DashboardControlServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func structHandler(fullMethod string, call structMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DashboardControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(DashboardControlServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type DashboardControlClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardControlClient(cc grpc.ClientConnInterface) *DashboardControlClient {
	return &DashboardControlClient{cc: cc}
}

func (c *DashboardControlClient) Health(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodHealth, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardControlClient) ListActivity(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListActivity, in, opts...)
}

func (c *DashboardControlClient) RunCron(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodRunCron, in, opts...)
}

func (c *DashboardControlClient) ToggleCron(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodToggleCron, in, opts...)
}

func (c *DashboardControlClient) SendAgentMessage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSendAgentMessage, in, opts...)
}

func (c *DashboardControlClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
