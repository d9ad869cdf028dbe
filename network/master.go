package network

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/errors"
	"github.com/mezonai/blockworker/logx"
	"github.com/mezonai/blockworker/utils"
)

type workerState struct {
	address       string
	blocks        map[block.BlockID]block.StoreLocation
	lostStorage   map[string][]string
	lastHeartbeat time.Time
	pending       []Command
}

// InMemoryMaster is a reference master: it tracks where each worker's blocks live by applying
// registrations and heartbeats, and hands out queued commands.
type InMemoryMaster struct {
	mu      sync.Mutex
	workers map[string]*workerState
	now     func() time.Time
}

var _ MasterServer = (*InMemoryMaster)(nil)

func NewInMemoryMaster() *InMemoryMaster {
	return &InMemoryMaster{
		workers: make(map[string]*workerState),
		now:     time.Now,
	}
}

func validateLocations(list []LocationBlocks) error {
	for _, lb := range list {
		if lb.TierAlias == "" || lb.Dir == "" {
			return errors.NewError(errors.ErrCodeInvalidLocation, errors.ErrMsgInvalidLocation)
		}
	}
	return nil
}

// RegisterWorker replaces everything known about the worker with its full block list.
func (m *InMemoryMaster) RegisterWorker(ctx context.Context, req *RegisterWorkerRequest) (*RegisterWorkerResponse, error) {
	if req.WorkerID == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidWorkerID, errors.ErrMsgInvalidWorkerID)
	}
	if err := validateLocations(req.Blocks); err != nil {
		return nil, err
	}

	state := &workerState{
		address:       req.Address,
		blocks:        make(map[block.BlockID]block.StoreLocation),
		lostStorage:   make(map[string][]string),
		lastHeartbeat: m.now(),
	}
	for loc, ids := range FromLocationBlocks(req.Blocks) {
		for _, id := range ids {
			state.blocks[id] = loc
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[req.WorkerID] = state

	logx.Info("MASTER", fmt.Sprintf("Worker registered | worker_id=%s | address=%s | blocks=%d", req.WorkerID, req.Address, len(state.blocks)))
	return &RegisterWorkerResponse{Accepted: true}, nil
}

// BlockHeartbeat applies a worker's delta. An unknown worker is told to register.
func (m *InMemoryMaster) BlockHeartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	if req.WorkerID == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidWorkerID, errors.ErrMsgInvalidWorkerID)
	}
	if err := validateLocations(req.Added); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.workers[req.WorkerID]
	if !ok {
		logx.Warn("MASTER", fmt.Sprintf("Heartbeat from unknown worker | worker_id=%s", req.WorkerID))
		return &HeartbeatResponse{Command: Command{Type: CommandRegister}}, nil
	}

	for loc, ids := range FromLocationBlocks(req.Added) {
		for _, id := range ids {
			state.blocks[id] = loc
		}
	}
	for _, id := range req.Removed {
		delete(state.blocks, id)
	}
	for tier, paths := range req.LostStorage {
		state.lostStorage[tier] = append(state.lostStorage[tier], paths...)
	}
	now := m.now()
	logx.Debug("MASTER", fmt.Sprintf("Heartbeat applied | worker_id=%s | added=%d | removed=%d | since_last=%.1fs",
		req.WorkerID, len(req.Added), len(req.Removed), utils.SecondsBetween(state.lastHeartbeat, now)))
	state.lastHeartbeat = now

	cmd := Command{Type: CommandNothing}
	if len(state.pending) > 0 {
		cmd = state.pending[0]
		state.pending = state.pending[1:]
	}
	return &HeartbeatResponse{Command: cmd}, nil
}

// FreeBlocks queues a free command for the worker's next heartbeat.
func (m *InMemoryMaster) FreeBlocks(workerID string, ids []block.BlockID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.workers[workerID]
	if !ok {
		return errors.NewError(errors.ErrCodeUnknownWorker, errors.ErrMsgUnknownWorker)
	}
	state.pending = append(state.pending, Command{Type: CommandFree, BlockIDs: append([]block.BlockID{}, ids...)})
	return nil
}

// ForgetWorker drops the worker, as a restarted master would.
func (m *InMemoryMaster) ForgetWorker(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.workers, workerID)
}

func (m *InMemoryMaster) IsRegistered(workerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.workers[workerID]
	return ok
}

// WorkerBlocks returns the master's view of a worker's blocks, ids ascending.
func (m *InMemoryMaster) WorkerBlocks(workerID string) map[block.StoreLocation][]block.BlockID {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[block.StoreLocation][]block.BlockID)
	state, ok := m.workers[workerID]
	if !ok {
		return out
	}
	for id, loc := range state.blocks {
		out[loc] = append(out[loc], id)
	}
	for _, ids := range out {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return out
}

// LostStorage returns the lost directories reported by a worker since it registered.
func (m *InMemoryMaster) LostStorage(workerID string) map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]string)
	state, ok := m.workers[workerID]
	if !ok {
		return out
	}
	for tier, paths := range state.lostStorage {
		out[tier] = append([]string{}, paths...)
	}
	return out
}
