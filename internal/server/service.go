package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of the gridpath.v1.Pathfinder service. Requests and
// responses are google.protobuf.Struct messages.
const (
	ServiceName     = "gridpath.v1.Pathfinder"
	FindPathMethod  = "/" + ServiceName + "/FindPath"
	StatsMethod     = "/" + ServiceName + "/Stats"
	serviceMetadata = "gridpath/v1/pathfinder.proto"
)

// PathfinderServer is the server API for the Pathfinder service.
type PathfinderServer interface {
	FindPath(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterPathfinderServer registers srv on s.
func RegisterPathfinderServer(s grpc.ServiceRegistrar, srv PathfinderServer) {
	s.RegisterService(&pathfinderServiceDesc, srv)
}

var pathfinderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PathfinderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FindPath", Handler: findPathHandler},
		{MethodName: "Stats", Handler: statsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: serviceMetadata,
}

func findPathHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PathfinderServer).FindPath(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FindPathMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PathfinderServer).FindPath(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PathfinderServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StatsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PathfinderServer).Stats(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
