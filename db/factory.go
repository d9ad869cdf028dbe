package db

import (
	"fmt"
	"os"
	"path/filepath"
)

type DBVendor string

const (
	LevelDB DBVendor = "leveldb"
	BoltDB  DBVendor = "bbolt"
	Memory  DBVendor = "memory"
	Redis   DBVendor = "redis" // For debug
)

const boltFileName = "blockmeta.db"

type DBOptions struct {
	Directory    string
	RedisAddress string
	RedisDB      int
}

// CreateDBProvider opens the metadata database of the given vendor
func CreateDBProvider(vendor DBVendor, options DBOptions) (Provider, error) {
	switch vendor {
	case LevelDB:
		if options.Directory == "" {
			return nil, fmt.Errorf("leveldb provider requires a directory")
		}
		return NewLevelDBProvider(options.Directory)

	case BoltDB:
		if options.Directory == "" {
			return nil, fmt.Errorf("bbolt provider requires a directory")
		}
		if err := os.MkdirAll(options.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("create bbolt directory: %w", err)
		}
		return NewBoltProvider(filepath.Join(options.Directory, boltFileName))

	case Memory:
		return NewMemLevelDBProvider()

	case Redis:
		addr := options.RedisAddress
		if addr == "" {
			addr = "localhost:6379"
		}
		return NewRedisProvider(addr, options.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported db provider: %s", vendor)
	}
}
