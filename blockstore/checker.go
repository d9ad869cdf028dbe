package blockstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/logx"
	"github.com/mezonai/blockworker/monitoring"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/viant/afs"
)

const DefaultCheckInterval = 30 * time.Second

// StorageChecker watches the live storage directories of a BlockStore and takes a directory out of
// service as soon as it disappears.
type StorageChecker struct {
	store    *BlockStore
	fs       afs.Service
	interval time.Duration
	usage    func(ctx context.Context, path string) (*disk.UsageStat, error)
}

func NewStorageChecker(store *BlockStore, interval time.Duration) *StorageChecker {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &StorageChecker{
		store:    store,
		fs:       afs.New(),
		interval: interval,
		usage:    disk.UsageWithContext,
	}
}

// Check probes every live directory once and returns the locations lost by this pass.
func (c *StorageChecker) Check(ctx context.Context) []block.StoreLocation {
	var lost []block.StoreLocation
	for _, loc := range c.store.Locations() {
		if ctx.Err() != nil {
			return lost
		}
		exists, err := c.fs.Exists(ctx, loc.Dir)
		if err != nil {
			logx.Warn("STORAGE CHECKER", fmt.Sprintf("Failed to probe %s: %v", loc, err))
			continue
		}
		if !exists {
			if _, err := c.store.LoseStorage(loc); err != nil && !errors.Is(err, ErrUnknownLocation) {
				logx.Error("STORAGE CHECKER", fmt.Sprintf("Failed to take %s out of service: %v", loc, err))
				continue
			}
			monitoring.IncreaseLostStorageCount()
			lost = append(lost, loc)
			continue
		}

		stat, err := c.usage(ctx, loc.Dir)
		if err != nil {
			logx.Debug("STORAGE CHECKER", fmt.Sprintf("No usage for %s: %v", loc, err))
			continue
		}
		monitoring.SetStorageUsage(loc.TierAlias, loc.Dir, stat.Total, stat.Used)
	}
	return lost
}

// Run checks the directories every interval until ctx is done.
func (c *StorageChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logx.Info("STORAGE CHECKER", fmt.Sprintf("Storage checker started | interval=%s", c.interval))
	for {
		select {
		case <-ctx.Done():
			logx.Info("STORAGE CHECKER", "Storage checker stopped")
			return
		case <-ticker.C:
			if lost := c.Check(ctx); len(lost) > 0 {
				logx.Warn("STORAGE CHECKER", fmt.Sprintf("Lost %d storage directories: %v", len(lost), lost))
			}
		}
	}
}
