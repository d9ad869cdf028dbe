// Package heartbeat keeps the master's view of this worker's blocks up to date: it registers the
// worker with its full block list and then sends the accumulated delta on every tick.
package heartbeat

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/blockstore"
	"github.com/mezonai/blockworker/logx"
	"github.com/mezonai/blockworker/monitoring"
	"github.com/mezonai/blockworker/network"
	"github.com/mezonai/blockworker/reporter"
)

const DefaultInterval = time.Second

// MasterClient is the transport to one master.
type MasterClient interface {
	Address() string
	RegisterWorker(ctx context.Context, req *network.RegisterWorkerRequest) error
	Heartbeat(ctx context.Context, req *network.HeartbeatRequest) (*network.Command, error)
	Close() error
}

// BlockStore is the part of the block store the sync loop needs.
type BlockStore interface {
	BlocksByLocation() map[block.StoreLocation][]block.BlockID
	RemoveBlock(origin blockstore.Origin, id block.BlockID) error
}

type Config struct {
	WorkerID string
	Address  string
	Interval time.Duration
}

// BlockSync drives registration and block heartbeats. Only one goroutine may call Register,
// Heartbeat or Run at a time; the reporter itself may be fed from anywhere.
type BlockSync struct {
	workerID string
	address  string
	interval time.Duration
	reporter *reporter.DeltaReporter
	store    BlockStore
	// masters[0] receives heartbeats; all of them receive registrations when the reporter says so
	masters []MasterClient

	mu         sync.Mutex
	registered bool
}

func NewBlockSync(cfg Config, r *reporter.DeltaReporter, store BlockStore, masters []MasterClient) (*BlockSync, error) {
	if cfg.WorkerID == "" {
		return nil, fmt.Errorf("worker id is required")
	}
	if len(masters) == 0 {
		return nil, fmt.Errorf("at least one master is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &BlockSync{
		workerID: cfg.WorkerID,
		address:  cfg.Address,
		interval: cfg.Interval,
		reporter: r,
		store:    store,
		masters:  masters,
	}, nil
}

func (s *BlockSync) Registered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered
}

func (s *BlockSync) setRegistered(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = v
}

// Register sends the full block list. The reporter is cleared before the block list is read, so a
// mutation racing with registration is at worst reported twice, never dropped.
func (s *BlockSync) Register(ctx context.Context) error {
	s.setRegistered(false)
	s.reporter.Clear()
	req := &network.RegisterWorkerRequest{
		WorkerID: s.workerID,
		Address:  s.address,
		Blocks:   network.ToLocationBlocks(s.store.BlocksByLocation()),
	}

	targets := s.masters[:1]
	if s.reporter.RegisterToAllMasters() {
		targets = s.masters
	}

	var errs []error
	for _, m := range targets {
		if err := m.RegisterWorker(ctx, req); err != nil {
			errs = append(errs, err)
			continue
		}
		logx.Info("HEARTBEAT", fmt.Sprintf("Registered with master | worker_id=%s | master=%s | locations=%d", s.workerID, m.Address(), len(req.Blocks)))
	}
	if len(errs) > 0 {
		monitoring.RecordRegister(monitoring.HeartbeatFailed)
		return fmt.Errorf("register worker %s: %w", s.workerID, stderrors.Join(errs...))
	}

	monitoring.RecordRegister(monitoring.HeartbeatSucceeded)
	s.setRegistered(true)
	return nil
}

// Heartbeat sends the delta accumulated since the last successful heartbeat. When the master
// cannot be reached the delta is merged back and goes out with the next heartbeat.
func (s *BlockSync) Heartbeat(ctx context.Context) error {
	report := s.reporter.SnapshotAndClear()
	req := network.ReportToRequest(s.workerID, report)

	start := time.Now()
	cmd, err := s.masters[0].Heartbeat(ctx, req)
	if err != nil {
		s.reporter.MergeBack(report)
		monitoring.IncreaseMergeBackCount()
		monitoring.RecordHeartbeat(monitoring.HeartbeatFailed, time.Since(start))
		return fmt.Errorf("heartbeat (%s merged back): %w", report, err)
	}
	monitoring.RecordHeartbeat(monitoring.HeartbeatSucceeded, time.Since(start))
	monitoring.RecordReportedDeltas(report.AddedCount(), report.RemovedCount(), report.LostStorageCount())
	if !report.IsEmpty() {
		logx.Debug("HEARTBEAT", fmt.Sprintf("Heartbeat delivered | worker_id=%s | %s", s.workerID, report))
	}

	return s.handleCommand(ctx, cmd)
}

func (s *BlockSync) handleCommand(ctx context.Context, cmd *network.Command) error {
	if cmd == nil {
		return nil
	}
	switch cmd.Type {
	case network.CommandNothing, "":
		return nil
	case network.CommandRegister:
		logx.Info("HEARTBEAT", fmt.Sprintf("Master asked worker %s to register again", s.workerID))
		return s.Register(ctx)
	case network.CommandFree:
		return s.freeBlocks(cmd.BlockIDs)
	default:
		logx.Warn("HEARTBEAT", fmt.Sprintf("Ignoring unknown master command %q", cmd.Type))
		return nil
	}
}

func (s *BlockSync) freeBlocks(ids []block.BlockID) error {
	var errs []error
	freed := 0
	for _, id := range ids {
		err := s.store.RemoveBlock(blockstore.OriginWorker, id)
		switch {
		case err == nil:
			freed++
		case stderrors.Is(err, blockstore.ErrBlockNotFound):
			logx.Warn("HEARTBEAT", fmt.Sprintf("Block %d to free is not on this worker", id))
		default:
			errs = append(errs, err)
		}
	}
	logx.Info("HEARTBEAT", fmt.Sprintf("Freed blocks on master request | requested=%d | freed=%d", len(ids), freed))
	if len(errs) > 0 {
		return fmt.Errorf("free blocks: %w", stderrors.Join(errs...))
	}
	return nil
}

// tick registers if needed, otherwise heartbeats.
func (s *BlockSync) tick(ctx context.Context) {
	pending := s.reporter.Pending()
	monitoring.SetPendingDeltas(pending.Added, pending.Removed, pending.LostStorage)

	if !s.Registered() {
		if err := s.Register(ctx); err != nil {
			logx.Warn("HEARTBEAT", fmt.Sprintf("Registration failed, retrying next tick: %v", err))
		}
		return
	}
	if err := s.Heartbeat(ctx); err != nil {
		logx.Warn("HEARTBEAT", err.Error())
	}
}

// Run registers and heartbeats every interval until ctx is done.
func (s *BlockSync) Run(ctx context.Context) {
	logx.Info("HEARTBEAT", fmt.Sprintf("Block sync started | worker_id=%s | interval=%s | masters=%d | register_to_all_masters=%t",
		s.workerID, s.interval, len(s.masters), s.reporter.RegisterToAllMasters()))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logx.Info("HEARTBEAT", "Block sync stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}
