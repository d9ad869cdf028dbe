package block

import "time"

// BlockMeta is the persisted metadata of a committed block.
type BlockMeta struct {
	ID          BlockID       `json:"id"`
	Location    StoreLocation `json:"location"`
	Size        int64         `json:"size"`
	CommittedAt time.Time     `json:"committed_at"`
}
