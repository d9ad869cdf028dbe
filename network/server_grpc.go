package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mezonai/blockworker/errors"
	"github.com/mezonai/blockworker/exception"
	"github.com/mezonai/blockworker/logx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewGRPCServer builds a gRPC server exposing srv as BlockMasterService.
func NewGRPCServer(srv MasterServer) *grpc.Server {
	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			defaultDeadlineUnaryInterceptor(GRPCDefaultDeadline),
			loggingUnaryInterceptor(),
			masterErrorUnaryInterceptor(),
		),
		grpc.MaxRecvMsgSize(GRPCMaxRecvMsgSize),
		grpc.MaxSendMsgSize(GRPCMaxSendMsgSize),
	)
	RegisterMasterServer(grpcSrv, srv)
	return grpcSrv
}

// ServeGRPC listens on addr and serves in the background.
func ServeGRPC(addr string, srv MasterServer) (*grpc.Server, net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	grpcSrv := NewGRPCServer(srv)
	exception.SafeGoWithPanic("Master gRPC Server", func() {
		if err := grpcSrv.Serve(lis); err != nil {
			logx.Error("GRPC SERVER", fmt.Sprintf("Failed to serve gRPC server: %v", err))
		}
	})
	logx.Info("GRPC SERVER", "gRPC server listening on ", lis.Addr().String())
	return grpcSrv, lis.Addr(), nil
}

func defaultDeadlineUnaryInterceptor(defaultTimeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) <= 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
			defer cancel()
		}
		return handler(ctx, req)
	}
}

func loggingUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logx.Warn("GRPC SERVER", fmt.Sprintf("%s failed after %s: %v", info.FullMethod, time.Since(start), err))
		} else {
			logx.Debug("GRPC SERVER", fmt.Sprintf("%s served in %s", info.FullMethod, time.Since(start)))
		}
		return resp, err
	}
}

// masterErrorUnaryInterceptor turns coded master errors into gRPC statuses the client can decode.
func masterErrorUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		return nil, status.Error(grpcCode(errors.CodeOf(err)), err.Error())
	}
}

func grpcCode(code errors.MasterErrorCode) codes.Code {
	switch code {
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidWorkerID, errors.ErrCodeInvalidLocation:
		return codes.InvalidArgument
	case errors.ErrCodeUnknownWorker:
		return codes.NotFound
	case errors.ErrCodeUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
