package network

import (
	"sort"

	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/reporter"
)

// ToLocationBlocks flattens a location map into a list sorted by location.
func ToLocationBlocks(blocks map[block.StoreLocation][]block.BlockID) []LocationBlocks {
	locations := make([]block.StoreLocation, 0, len(blocks))
	for loc := range blocks {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].Less(locations[j]) })

	out := make([]LocationBlocks, 0, len(locations))
	for _, loc := range locations {
		out = append(out, LocationBlocks{
			TierAlias: loc.TierAlias,
			Dir:       loc.Dir,
			BlockIDs:  append([]block.BlockID{}, blocks[loc]...),
		})
	}
	return out
}

// FromLocationBlocks rebuilds a location map. Entries naming the same location are concatenated.
func FromLocationBlocks(list []LocationBlocks) map[block.StoreLocation][]block.BlockID {
	out := make(map[block.StoreLocation][]block.BlockID, len(list))
	for _, lb := range list {
		loc := block.NewStoreLocation(lb.TierAlias, lb.Dir)
		out[loc] = append(out[loc], lb.BlockIDs...)
	}
	return out
}

// ReportToRequest converts a report into the heartbeat sent by workerID.
func ReportToRequest(workerID string, report *reporter.Report) *HeartbeatRequest {
	return &HeartbeatRequest{
		WorkerID:    workerID,
		Added:       ToLocationBlocks(report.AddedBlocks()),
		Removed:     report.RemovedBlocks(),
		LostStorage: report.LostStorage(),
	}
}

// RequestToReport is the inverse of ReportToRequest.
func RequestToReport(req *HeartbeatRequest) *reporter.Report {
	return reporter.NewReport(FromLocationBlocks(req.Added), req.Removed, req.LostStorage)
}
