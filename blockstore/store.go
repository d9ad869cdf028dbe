package blockstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/db"
	"github.com/mezonai/blockworker/events"
	"github.com/mezonai/blockworker/jsonx"
	"github.com/mezonai/blockworker/logx"
)

var (
	ErrBlockNotFound   = errors.New("block not found")
	ErrBlockExists     = errors.New("block already exists")
	ErrUnknownLocation = errors.New("unknown store location")
)

const blockKeyPrefix = "block:"

// Origin tells whether a mutation was requested by a client or decided by the worker itself.
type Origin int

const (
	OriginClient Origin = iota
	OriginWorker
)

func (o Origin) String() string {
	if o == OriginWorker {
		return "worker"
	}
	return "client"
}

// CommitFunc is the synchronous path that tells the master about a newly committed block.
// Commits never go through the heartbeat listeners.
type CommitFunc func(meta block.BlockMeta) error

type Option func(*BlockStore)

// WithCommitFunc sets the commit notification path.
func WithCommitFunc(fn CommitFunc) Option {
	return func(s *BlockStore) {
		s.onCommit = fn
	}
}

// WithClock overrides time.Now for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *BlockStore) {
		s.now = now
	}
}

// BlockStore is the tiered block metadata store of a worker. Every mutation is persisted and then
// announced to the listener while the store lock is held, so listeners observe mutations in the
// order they were applied. Listeners must not call back into the store.
type BlockStore struct {
	mu       sync.RWMutex
	provider db.Provider
	listener events.Listener
	onCommit CommitFunc
	now      func() time.Time
	known    map[block.StoreLocation]struct{}
	live     map[block.StoreLocation]struct{}
	blocks   map[block.BlockID]block.BlockMeta
}

// Open loads the block index from provider. Blocks persisted under a location that is no longer
// configured are dropped from the index.
func Open(provider db.Provider, listener events.Listener, locations []block.StoreLocation, opts ...Option) (*BlockStore, error) {
	s := &BlockStore{
		provider: provider,
		listener: listener,
		now:      time.Now,
		known:    make(map[block.StoreLocation]struct{}, len(locations)),
		live:     make(map[block.StoreLocation]struct{}, len(locations)),
		blocks:   make(map[block.BlockID]block.BlockMeta),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, loc := range locations {
		if loc.TierAlias == "" || loc.Dir == "" {
			return nil, fmt.Errorf("invalid location %q: %w", loc, ErrUnknownLocation)
		}
		s.known[loc] = struct{}{}
		s.live[loc] = struct{}{}
	}

	var stale [][]byte
	var decodeErr error
	err := provider.IteratePrefix([]byte(blockKeyPrefix), func(key, value []byte) bool {
		var meta block.BlockMeta
		if err := jsonx.Unmarshal(value, &meta); err != nil {
			decodeErr = fmt.Errorf("decode block meta %q: %w", key, err)
			return false
		}
		if _, ok := s.live[meta.Location]; !ok {
			stale = append(stale, blockKey(meta.ID))
			return true
		}
		s.blocks[meta.ID] = meta
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("load block index: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	if len(stale) > 0 {
		batch := provider.Batch()
		for _, key := range stale {
			batch.Delete(key)
		}
		if err := batch.Write(); err != nil {
			return nil, fmt.Errorf("drop stale block meta: %w", err)
		}
		logx.Warn("BLOCKSTORE", fmt.Sprintf("Dropped %d blocks stored under unconfigured locations", len(stale)))
	}

	logx.Info("BLOCKSTORE", fmt.Sprintf("Block store opened | locations=%d | blocks=%d", len(s.live), len(s.blocks)))
	return s, nil
}

func blockKey(id block.BlockID) []byte {
	key := make([]byte, len(blockKeyPrefix)+8)
	copy(key, blockKeyPrefix)
	binary.BigEndian.PutUint64(key[len(blockKeyPrefix):], uint64(id))
	return key
}

func (s *BlockStore) putMeta(meta block.BlockMeta) error {
	value, err := jsonx.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode block meta %d: %w", meta.ID, err)
	}
	if err := s.provider.Put(blockKey(meta.ID), value); err != nil {
		return fmt.Errorf("persist block meta %d: %w", meta.ID, err)
	}
	return nil
}

// CommitBlock records a newly written block. The commit is reported through the CommitFunc only.
func (s *BlockStore) CommitBlock(id block.BlockID, location block.StoreLocation, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[id]; ok {
		return fmt.Errorf("commit block %d: %w", id, ErrBlockExists)
	}
	if _, ok := s.live[location]; !ok {
		return fmt.Errorf("commit block %d to %s: %w", id, location, ErrUnknownLocation)
	}

	meta := block.BlockMeta{ID: id, Location: location, Size: size, CommittedAt: s.now()}
	if err := s.putMeta(meta); err != nil {
		return err
	}
	s.blocks[id] = meta

	if s.onCommit != nil {
		if err := s.onCommit(meta); err != nil {
			return fmt.Errorf("commit block %d: %w", id, err)
		}
	}
	return nil
}

// MoveBlock relocates a block. Moving a block to where it already is does nothing.
func (s *BlockStore) MoveBlock(origin Origin, id block.BlockID, dst block.StoreLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.blocks[id]
	if !ok {
		return fmt.Errorf("move block %d: %w", id, ErrBlockNotFound)
	}
	if _, ok := s.live[dst]; !ok {
		return fmt.Errorf("move block %d to %s: %w", id, dst, ErrUnknownLocation)
	}
	src := meta.Location
	if src == dst {
		return nil
	}

	meta.Location = dst
	if err := s.putMeta(meta); err != nil {
		return err
	}
	s.blocks[id] = meta

	logx.Debug("BLOCKSTORE", fmt.Sprintf("Moved block | block_id=%d | from=%s | to=%s | origin=%s", id, src, dst, origin))
	if origin == OriginWorker {
		s.listener.OnMoveBlockByWorker(id, src, dst)
	} else {
		s.listener.OnMoveBlockByClient(id, src, dst)
	}
	return nil
}

// RemoveBlock deletes a block on behalf of a client or the worker.
func (s *BlockStore) RemoveBlock(origin Origin, id block.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteLocked(id); err != nil {
		return fmt.Errorf("remove block %d: %w", id, err)
	}

	logx.Debug("BLOCKSTORE", fmt.Sprintf("Removed block | block_id=%d | origin=%s", id, origin))
	if origin == OriginWorker {
		s.listener.OnRemoveBlockByWorker(id)
	} else {
		s.listener.OnRemoveBlockByClient(id)
	}
	return nil
}

// LoseBlock drops a block whose data can no longer be read.
func (s *BlockStore) LoseBlock(id block.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteLocked(id); err != nil {
		return fmt.Errorf("lose block %d: %w", id, err)
	}

	logx.Warn("BLOCKSTORE", fmt.Sprintf("Block lost | block_id=%d", id))
	s.listener.OnBlockLost(id)
	return nil
}

func (s *BlockStore) deleteLocked(id block.BlockID) error {
	if _, ok := s.blocks[id]; !ok {
		return ErrBlockNotFound
	}
	if err := s.provider.Delete(blockKey(id)); err != nil {
		return fmt.Errorf("delete block meta: %w", err)
	}
	delete(s.blocks, id)
	return nil
}

// LoseStorage takes a directory out of service: every block in it is lost, then the directory
// itself is reported lost. Reporting an already lost directory again announces it again.
// It returns the ids of the blocks lost with the directory.
func (s *BlockStore) LoseStorage(location block.StoreLocation) ([]block.BlockID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[location]; !ok {
		return nil, fmt.Errorf("lose storage %s: %w", location, ErrUnknownLocation)
	}

	var lost []block.BlockID
	for id, meta := range s.blocks {
		if meta.Location == location {
			lost = append(lost, id)
		}
	}
	sort.Slice(lost, func(i, j int) bool { return lost[i] < lost[j] })

	if len(lost) > 0 {
		batch := s.provider.Batch()
		for _, id := range lost {
			batch.Delete(blockKey(id))
		}
		if err := batch.Write(); err != nil {
			return nil, fmt.Errorf("lose storage %s: %w", location, err)
		}
	}
	delete(s.live, location)

	logx.Warn("BLOCKSTORE", fmt.Sprintf("Storage lost | location=%s | blocks_lost=%d", location, len(lost)))
	for _, id := range lost {
		delete(s.blocks, id)
		s.listener.OnBlockLost(id)
	}
	s.listener.OnStorageLost(location.TierAlias, location.Dir)
	return lost, nil
}

func (s *BlockStore) GetBlock(id block.BlockID) (block.BlockMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.blocks[id]
	if !ok {
		return block.BlockMeta{}, fmt.Errorf("get block %d: %w", id, ErrBlockNotFound)
	}
	return meta, nil
}

func (s *BlockStore) HasBlock(id block.BlockID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blocks[id]
	return ok
}

// BlocksByLocation returns every block grouped by location, ids ascending. Live locations
// without blocks are present with an empty list.
func (s *BlockStore) BlocksByLocation() map[block.StoreLocation][]block.BlockID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[block.StoreLocation][]block.BlockID, len(s.live))
	for loc := range s.live {
		out[loc] = []block.BlockID{}
	}
	for id, meta := range s.blocks {
		out[meta.Location] = append(out[meta.Location], id)
	}
	for _, ids := range out {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return out
}

// Locations returns the live locations, sorted.
func (s *BlockStore) Locations() []block.StoreLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]block.StoreLocation, 0, len(s.live))
	for loc := range s.live {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (s *BlockStore) Close() error {
	return s.provider.Close()
}
