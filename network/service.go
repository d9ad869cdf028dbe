package network

import (
	"context"

	"google.golang.org/grpc"
)

// MasterServer is the master side of the block heartbeat protocol.
type MasterServer interface {
	RegisterWorker(ctx context.Context, req *RegisterWorkerRequest) (*RegisterWorkerResponse, error)
	BlockHeartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error)
}

// masterServiceDesc describes BlockMasterService; messages travel with the json codec.
var masterServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MasterServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: registerWorkerMethodName,
			Handler:    registerWorkerHandler,
		},
		{
			MethodName: blockHeartbeatMethodName,
			Handler:    blockHeartbeatHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "blockworker/master.json",
}

// RegisterMasterServer registers srv on s.
func RegisterMasterServer(s grpc.ServiceRegistrar, srv MasterServer) {
	s.RegisterService(&masterServiceDesc, srv)
}

func registerWorkerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterWorkerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MasterServer).RegisterWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: registerWorkerMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MasterServer).RegisterWorker(ctx, req.(*RegisterWorkerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func blockHeartbeatHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MasterServer).BlockHeartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: blockHeartbeatMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MasterServer).BlockHeartbeat(ctx, req.(*HeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}
