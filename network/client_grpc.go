package network

import (
	"context"
	"fmt"
	"time"

	"github.com/mezonai/blockworker/errors"
	"github.com/mezonai/blockworker/logx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// GRPCMasterClient talks to one master over gRPC.
type GRPCMasterClient struct {
	addr    string
	conn    *grpc.ClientConn
	timeout time.Duration
}

// NewGRPCMasterClient prepares a connection to addr. The connection is established lazily,
// so an unreachable master only fails the first call.
func NewGRPCMasterClient(addr string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCMasterClient, error) {
	if timeout <= 0 {
		timeout = GRPCDefaultDeadline
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(codecName),
			grpc.MaxCallRecvMsgSize(GRPCMaxSendMsgSize),
			grpc.MaxCallSendMsgSize(GRPCMaxRecvMsgSize),
		),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gRPC client for %s: %w", addr, err)
	}
	return &GRPCMasterClient{addr: addr, conn: conn, timeout: timeout}, nil
}

func (c *GRPCMasterClient) Address() string {
	return c.addr
}

func (c *GRPCMasterClient) RegisterWorker(ctx context.Context, req *RegisterWorkerRequest) error {
	rpcCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := new(RegisterWorkerResponse)
	if err := c.conn.Invoke(rpcCtx, registerWorkerMethod, req, resp); err != nil {
		return c.wrap("register worker", err)
	}
	if !resp.Accepted {
		return fmt.Errorf("register worker with %s: %w", c.addr, errors.NewError(errors.ErrCodeUnavailable, errors.ErrMsgUnavailable))
	}
	return nil
}

func (c *GRPCMasterClient) Heartbeat(ctx context.Context, req *HeartbeatRequest) (*Command, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := new(HeartbeatResponse)
	if err := c.conn.Invoke(rpcCtx, blockHeartbeatMethod, req, resp); err != nil {
		return nil, c.wrap("block heartbeat", err)
	}
	return &resp.Command, nil
}

// wrap restores a coded master error from a gRPC status when the master sent one.
func (c *GRPCMasterClient) wrap(op string, err error) error {
	if st, ok := status.FromError(err); ok {
		if me, ok := errors.Parse(st.Message()); ok {
			return fmt.Errorf("%s with %s: %w", op, c.addr, me)
		}
	}
	logx.Debug("GRPC CLIENT", fmt.Sprintf("%s with %s failed: %v", op, c.addr, err))
	return fmt.Errorf("%s with %s: %w", op, c.addr, err)
}

func (c *GRPCMasterClient) Close() error {
	return c.conn.Close()
}
