// Package reporter accumulates block store deltas between two worker heartbeats.
//
// Newly committed blocks do not pass through here; they reach the master through the
// synchronous commit path of the block store.
package reporter

import (
	"fmt"
	"sync"

	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/events"
	"github.com/mezonai/blockworker/logx"
)

const (
	initialRemovedCapacity = 100
	initialAddedCapacity   = 20
)

// Pending holds the sizes of the period being accumulated.
type Pending struct {
	Added       int
	Removed     int
	LostStorage int
}

// DeltaReporter records block store mutations for the current heartbeat period.
// One instance is created per worker and shared by the block store (as a listener)
// and the heartbeat sender. All methods are safe for concurrent use.
type DeltaReporter struct {
	mu sync.Mutex

	// blocks added or moved in this period, keyed by their latest location
	addedBlocks map[block.StoreLocation][]block.BlockID
	// blocks that left the worker in this period, no duplicates from event handlers
	removedBlocks []block.BlockID
	// lost directories per tier alias, repeats preserved
	lostStorage map[string][]string

	registerToAllMasters bool
}

var _ events.Listener = (*DeltaReporter)(nil)

func NewDeltaReporter(registerToAllMasters bool) *DeltaReporter {
	r := &DeltaReporter{registerToAllMasters: registerToAllMasters}
	r.reset()
	logx.Debug("REPORTER", "DeltaReporter initialized")
	return r
}

// RegisterToAllMasters reports the worker registration mode read at construction.
// It does not change how deltas are accumulated.
func (r *DeltaReporter) RegisterToAllMasters() bool {
	return r.registerToAllMasters
}

// reset must be called with mu held (or before the reporter is shared).
func (r *DeltaReporter) reset() {
	r.addedBlocks = make(map[block.StoreLocation][]block.BlockID, initialAddedCapacity)
	r.removedBlocks = make([]block.BlockID, 0, initialRemovedCapacity)
	r.lostStorage = make(map[string][]string)
}

// SnapshotAndClear returns the delta of the period that just ended and starts a new one.
func (r *DeltaReporter) SnapshotAndClear() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := newOwnedReport(r.addedBlocks, r.removedBlocks, r.lostStorage)
	r.reset()
	return report
}

// Clear drops everything accumulated in the current period.
func (r *DeltaReporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reset()
}

// MergeBack folds an undelivered report into the current period. Added blocks that were removed
// after the report was taken are dropped. Removed blocks are appended as they are, so a block
// removed in both periods is listed twice.
func (r *DeltaReporter) MergeBack(previous *Report) {
	if previous == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removedSet := make(map[block.BlockID]struct{}, len(r.removedBlocks))
	for _, id := range r.removedBlocks {
		removedSet[id] = struct{}{}
	}

	for loc, ids := range previous.addedBlocks {
		survivors := make([]block.BlockID, 0, len(ids))
		for _, id := range ids {
			if _, removed := removedSet[id]; !removed {
				survivors = append(survivors, id)
			}
		}
		if len(survivors) == 0 {
			continue
		}
		r.addedBlocks[loc] = append(r.addedBlocks[loc], survivors...)
	}

	for tier, paths := range previous.lostStorage {
		if len(paths) == 0 {
			continue
		}
		r.lostStorage[tier] = append(r.lostStorage[tier], paths...)
	}

	r.removedBlocks = append(r.removedBlocks, previous.removedBlocks...)

	logx.Debug("REPORTER", fmt.Sprintf("Merged back undelivered report | %s", previous))
}

// Pending returns the sizes of the current period.
func (r *DeltaReporter) Pending() Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := Pending{Removed: len(r.removedBlocks)}
	for _, ids := range r.addedBlocks {
		p.Added += len(ids)
	}
	for _, paths := range r.lostStorage {
		p.LostStorage += len(paths)
	}
	return p
}

func (r *DeltaReporter) OnMoveBlockByClient(blockID block.BlockID, oldLocation, newLocation block.StoreLocation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.moveBlock(blockID, newLocation)
}

func (r *DeltaReporter) OnMoveBlockByWorker(blockID block.BlockID, oldLocation, newLocation block.StoreLocation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.moveBlock(blockID, newLocation)
}

func (r *DeltaReporter) OnRemoveBlockByClient(blockID block.BlockID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeBlock(blockID)
}

func (r *DeltaReporter) OnRemoveBlockByWorker(blockID block.BlockID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeBlock(blockID)
}

func (r *DeltaReporter) OnBlockLost(blockID block.BlockID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeBlock(blockID)
}

func (r *DeltaReporter) OnStorageLost(tierAlias string, dirPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lostStorage[tierAlias] = append(r.lostStorage[tierAlias], dirPath)
}

// moveBlock keeps a single added entry per block, at its latest location.
func (r *DeltaReporter) moveBlock(blockID block.BlockID, location block.StoreLocation) {
	r.dropAdded(blockID)
	r.addedBlocks[location] = append(r.addedBlocks[location], blockID)
}

func (r *DeltaReporter) removeBlock(blockID block.BlockID) {
	r.dropAdded(blockID)
	for _, id := range r.removedBlocks {
		if id == blockID {
			return
		}
	}
	r.removedBlocks = append(r.removedBlocks, blockID)
}

// dropAdded removes blockID from the added blocks, deleting the bucket when it empties.
// A block has at most one added entry, so the scan stops at the first hit.
func (r *DeltaReporter) dropAdded(blockID block.BlockID) {
	for loc, ids := range r.addedBlocks {
		for i, id := range ids {
			if id != blockID {
				continue
			}
			if len(ids) == 1 {
				delete(r.addedBlocks, loc)
			} else {
				r.addedBlocks[loc] = append(ids[:i], ids[i+1:]...)
			}
			return
		}
	}
}
