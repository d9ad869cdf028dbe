package reporter

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/mezonai/blockworker/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventOp struct {
	Kind  uint8
	Block uint8
	Loc   uint8
}

const (
	opMoveByClient = iota
	opMoveByWorker
	opRemoveByClient
	opRemoveByWorker
	opBlockLost
	opStorageLost
	opKinds
)

var fuzzLocations = []block.StoreLocation{locA, locB, locC}

func (op eventOp) apply(r *DeltaReporter) {
	id := block.BlockID(op.Block % 16)
	loc := fuzzLocations[int(op.Loc)%len(fuzzLocations)]
	switch op.Kind % opKinds {
	case opMoveByClient:
		r.OnMoveBlockByClient(id, none, loc)
	case opMoveByWorker:
		r.OnMoveBlockByWorker(id, none, loc)
	case opRemoveByClient:
		r.OnRemoveBlockByClient(id)
	case opRemoveByWorker:
		r.OnRemoveBlockByWorker(id)
	case opBlockLost:
		r.OnBlockLost(id)
	case opStorageLost:
		r.OnStorageLost(loc.TierAlias, loc.Dir)
	}
}

func TestGeneratedEventSequences(t *testing.T) {
	for seed := int64(1); seed <= 64; seed++ {
		var ops []eventOp
		fuzz.NewWithSeed(seed).NilChance(0).NumElements(1, 200).Fuzz(&ops)

		r := NewDeltaReporter(false)
		for _, op := range ops {
			op.apply(r)
		}
		report := r.SnapshotAndClear()

		// expected outcome from the event order alone
		lastMove := make(map[block.BlockID]block.StoreLocation)
		lastIsMove := make(map[block.BlockID]bool)
		var firstRemoves []block.BlockID
		removed := make(map[block.BlockID]bool)
		lost := make(map[string][]string)
		for _, op := range ops {
			id := block.BlockID(op.Block % 16)
			loc := fuzzLocations[int(op.Loc)%len(fuzzLocations)]
			switch op.Kind % opKinds {
			case opMoveByClient, opMoveByWorker:
				lastMove[id] = loc
				lastIsMove[id] = true
			case opRemoveByClient, opRemoveByWorker, opBlockLost:
				lastIsMove[id] = false
				if !removed[id] {
					removed[id] = true
					firstRemoves = append(firstRemoves, id)
				}
			case opStorageLost:
				lost[loc.TierAlias] = append(lost[loc.TierAlias], loc.Dir)
			}
		}

		added := make(map[block.BlockID]block.StoreLocation)
		for loc, ids := range report.AddedBlocks() {
			require.NotEmpty(t, ids, "seed %d: empty bucket for %s", seed, loc)
			for _, id := range ids {
				_, dup := added[id]
				require.False(t, dup, "seed %d: block %d added twice", seed, id)
				added[id] = loc
			}
		}
		for id, isMove := range lastIsMove {
			if isMove {
				assert.Equal(t, lastMove[id], added[id], "seed %d: block %d", seed, id)
			} else {
				assert.NotContains(t, added, id, "seed %d", seed)
			}
		}
		assert.Len(t, added, countTrue(lastIsMove), "seed %d", seed)

		if len(firstRemoves) == 0 {
			assert.Empty(t, report.RemovedBlocks(), "seed %d", seed)
		} else {
			assert.Equal(t, firstRemoves, report.RemovedBlocks(), "seed %d", seed)
		}
		assert.Equal(t, len(lost), len(report.LostStorage()), "seed %d", seed)
		for tier, paths := range lost {
			assert.Equal(t, paths, report.LostStorage()[tier], "seed %d", seed)
		}

		assert.True(t, r.SnapshotAndClear().IsEmpty(), "seed %d", seed)
	}
}

func countTrue(m map[block.BlockID]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}
