package reporter

import (
	"fmt"

	"github.com/mezonai/blockworker/block"
)

// Report is the block store delta of one heartbeat period. It is never mutated after construction
// and every accessor hands out a copy, so a Report can cross goroutines without locking.
type Report struct {
	addedBlocks   map[block.StoreLocation][]block.BlockID
	removedBlocks []block.BlockID
	lostStorage   map[string][]string
}

// NewReport builds a Report from collections owned by the caller; they are copied.
func NewReport(added map[block.StoreLocation][]block.BlockID, removed []block.BlockID, lost map[string][]string) *Report {
	return &Report{
		addedBlocks:   copyAdded(added),
		removedBlocks: append([]block.BlockID{}, removed...),
		lostStorage:   copyLost(lost),
	}
}

// newOwnedReport takes ownership of the given collections without copying.
func newOwnedReport(added map[block.StoreLocation][]block.BlockID, removed []block.BlockID, lost map[string][]string) *Report {
	return &Report{addedBlocks: added, removedBlocks: removed, lostStorage: lost}
}

// AddedBlocks returns the blocks added or moved during the period, keyed by their final location.
func (r *Report) AddedBlocks() map[block.StoreLocation][]block.BlockID {
	return copyAdded(r.addedBlocks)
}

// RemovedBlocks returns the blocks that left the worker during the period.
func (r *Report) RemovedBlocks() []block.BlockID {
	return append([]block.BlockID{}, r.removedBlocks...)
}

// LostStorage returns the lost directories of the period keyed by tier alias.
func (r *Report) LostStorage() map[string][]string {
	return copyLost(r.lostStorage)
}

func (r *Report) AddedCount() int {
	n := 0
	for _, ids := range r.addedBlocks {
		n += len(ids)
	}
	return n
}

func (r *Report) RemovedCount() int {
	return len(r.removedBlocks)
}

func (r *Report) LostStorageCount() int {
	n := 0
	for _, paths := range r.lostStorage {
		n += len(paths)
	}
	return n
}

func (r *Report) IsEmpty() bool {
	return r.AddedCount() == 0 && r.RemovedCount() == 0 && r.LostStorageCount() == 0
}

func (r *Report) String() string {
	return fmt.Sprintf("added=%d removed=%d lost_storage=%d", r.AddedCount(), r.RemovedCount(), r.LostStorageCount())
}

func copyAdded(src map[block.StoreLocation][]block.BlockID) map[block.StoreLocation][]block.BlockID {
	dst := make(map[block.StoreLocation][]block.BlockID, len(src))
	for loc, ids := range src {
		dst[loc] = append([]block.BlockID{}, ids...)
	}
	return dst
}

func copyLost(src map[string][]string) map[string][]string {
	dst := make(map[string][]string, len(src))
	for tier, paths := range src {
		dst[tier] = append([]string{}, paths...)
	}
	return dst
}
