package block

import (
	"fmt"
	"strconv"
)

// Tier aliases known to the worker. Any other alias is accepted as long as it is configured.
const (
	TierMEM = "MEM"
	TierSSD = "SSD"
	TierHDD = "HDD"
)

// BlockID is the opaque 64-bit identifier of a block.
type BlockID uint64

func (id BlockID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// StoreLocation identifies a tier + directory on the worker. It is comparable and used as a map key.
type StoreLocation struct {
	TierAlias string `json:"tier_alias"`
	Dir       string `json:"dir"`
}

func NewStoreLocation(tierAlias, dir string) StoreLocation {
	return StoreLocation{TierAlias: tierAlias, Dir: dir}
}

func (l StoreLocation) String() string {
	return fmt.Sprintf("%s:%s", l.TierAlias, l.Dir)
}

// Less orders locations by tier alias, then directory.
func (l StoreLocation) Less(other StoreLocation) bool {
	if l.TierAlias != other.TierAlias {
		return l.TierAlias < other.TierAlias
	}
	return l.Dir < other.Dir
}
