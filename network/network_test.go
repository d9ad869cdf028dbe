package network

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/errors"
	"github.com/mezonai/blockworker/reporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

var (
	memLoc = block.NewStoreLocation(block.TierMEM, "/mnt/ramdisk")
	ssdLoc = block.NewStoreLocation(block.TierSSD, "/mnt/ssd0")
)

func startBufServer(t *testing.T, srv MasterServer) *GRPCMasterClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	grpcSrv := NewGRPCServer(srv)
	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	client, err := NewGRPCMasterClient("passthrough:///bufnet", time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type failingMaster struct {
	err error
}

func (f *failingMaster) RegisterWorker(ctx context.Context, req *RegisterWorkerRequest) (*RegisterWorkerResponse, error) {
	return nil, f.err
}

func (f *failingMaster) BlockHeartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	return nil, f.err
}

func TestReportConversionRoundTrip(t *testing.T) {
	report := reporter.NewReport(
		map[block.StoreLocation][]block.BlockID{ssdLoc: {3, 1}, memLoc: {2}},
		[]block.BlockID{7, 8},
		map[string][]string{"SSD": {"/m1", "/m1"}},
	)

	req := ReportToRequest("worker-1", report)
	assert.Equal(t, "worker-1", req.WorkerID)
	assert.Equal(t, []LocationBlocks{
		{TierAlias: block.TierMEM, Dir: "/mnt/ramdisk", BlockIDs: []block.BlockID{2}},
		{TierAlias: block.TierSSD, Dir: "/mnt/ssd0", BlockIDs: []block.BlockID{3, 1}},
	}, req.Added)

	back := RequestToReport(req)
	assert.Equal(t, report.AddedBlocks(), back.AddedBlocks())
	assert.Equal(t, report.RemovedBlocks(), back.RemovedBlocks())
	assert.Equal(t, report.LostStorage(), back.LostStorage())
}

func TestCodecName(t *testing.T) {
	data, err := jsonCodec{}.Marshal(&Command{Type: CommandFree, BlockIDs: []block.BlockID{1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"free","block_ids":[1]}`, string(data))

	var cmd Command
	require.NoError(t, jsonCodec{}.Unmarshal(data, &cmd))
	assert.Equal(t, CommandFree, cmd.Type)
	assert.Equal(t, codecName, jsonCodec{}.Name())
}

func TestRegisterAndHeartbeatOverGRPC(t *testing.T) {
	master := NewInMemoryMaster()
	client := startBufServer(t, master)
	ctx := context.Background()

	err := client.RegisterWorker(ctx, &RegisterWorkerRequest{
		WorkerID: "worker-1",
		Address:  "10.0.0.1:29999",
		Blocks: []LocationBlocks{
			{TierAlias: block.TierMEM, Dir: "/mnt/ramdisk", BlockIDs: []block.BlockID{1, 2}},
		},
	})
	require.NoError(t, err)
	require.True(t, master.IsRegistered("worker-1"))

	report := reporter.NewReport(
		map[block.StoreLocation][]block.BlockID{ssdLoc: {1}},
		[]block.BlockID{2},
		map[string][]string{"HDD": {"/d1"}},
	)
	cmd, err := client.Heartbeat(ctx, ReportToRequest("worker-1", report))
	require.NoError(t, err)
	assert.Equal(t, CommandNothing, cmd.Type)

	assert.Equal(t, map[block.StoreLocation][]block.BlockID{ssdLoc: {1}}, master.WorkerBlocks("worker-1"))
	assert.Equal(t, map[string][]string{"HDD": {"/d1"}}, master.LostStorage("worker-1"))
}

func TestHeartbeatFromUnknownWorkerAsksToRegister(t *testing.T) {
	client := startBufServer(t, NewInMemoryMaster())

	cmd, err := client.Heartbeat(context.Background(), &HeartbeatRequest{WorkerID: "stranger"})
	require.NoError(t, err)
	assert.Equal(t, CommandRegister, cmd.Type)
}

func TestFreeCommandIsDeliveredOnce(t *testing.T) {
	master := NewInMemoryMaster()
	client := startBufServer(t, master)
	ctx := context.Background()
	require.NoError(t, client.RegisterWorker(ctx, &RegisterWorkerRequest{WorkerID: "w"}))
	assert.Error(t, master.FreeBlocks("other", []block.BlockID{1}))
	require.NoError(t, master.FreeBlocks("w", []block.BlockID{4, 5}))

	cmd, err := client.Heartbeat(ctx, &HeartbeatRequest{WorkerID: "w"})
	require.NoError(t, err)
	assert.Equal(t, Command{Type: CommandFree, BlockIDs: []block.BlockID{4, 5}}, *cmd)

	cmd, err = client.Heartbeat(ctx, &HeartbeatRequest{WorkerID: "w"})
	require.NoError(t, err)
	assert.Equal(t, CommandNothing, cmd.Type)
}

func TestMasterErrorsSurviveTransport(t *testing.T) {
	client := startBufServer(t, NewInMemoryMaster())

	_, err := client.Heartbeat(context.Background(), &HeartbeatRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidWorkerID))

	err = client.RegisterWorker(context.Background(), &RegisterWorkerRequest{
		WorkerID: "w",
		Blocks:   []LocationBlocks{{TierAlias: "MEM"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidLocation))
}

func TestUnavailableMaster(t *testing.T) {
	client := startBufServer(t, &failingMaster{err: errors.NewError(errors.ErrCodeUnavailable, errors.ErrMsgUnavailable)})

	_, err := client.Heartbeat(context.Background(), &HeartbeatRequest{WorkerID: "w"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnavailable, errors.CodeOf(err))
}

func TestForgetWorker(t *testing.T) {
	master := NewInMemoryMaster()
	_, err := master.RegisterWorker(context.Background(), &RegisterWorkerRequest{WorkerID: "w"})
	require.NoError(t, err)

	master.ForgetWorker("w")
	assert.False(t, master.IsRegistered("w"))
	assert.Empty(t, master.WorkerBlocks("w"))
}
