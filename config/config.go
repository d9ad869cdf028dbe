package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/db"
	"github.com/mezonai/blockworker/logx"
	"github.com/mezonai/blockworker/utils"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHeartbeatInterval    = time.Second
	DefaultHeartbeatTimeout     = 30 * time.Second
	DefaultStorageCheckInterval = 30 * time.Second
)

// LoadWorkerConfig reads, defaults and validates the worker.yml file
func LoadWorkerConfig(path string) (*WorkerConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg := &cfgFile.Config
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded worker config | worker_id=%s | masters=%d | tiers=%d | backend=%s",
		cfg.Worker.ID, len(cfg.Masters), len(cfg.Tiers), cfg.Storage.Backend))
	return cfg, nil
}

func (c *WorkerConfig) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = string(db.LevelDB)
	}
}

// Validate checks that the worker can be started with this configuration
func (c *WorkerConfig) Validate() error {
	if c.Worker.ID == "" {
		return fmt.Errorf("worker.id is required")
	}
	if c.Worker.Address == "" {
		return fmt.Errorf("worker.address is required")
	}
	if len(c.Masters) == 0 {
		return fmt.Errorf("at least one master is required")
	}
	for i, m := range c.Masters {
		if m == "" {
			return fmt.Errorf("masters[%d] is empty", i)
		}
	}

	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one tier is required")
	}
	seen := make(map[block.StoreLocation]struct{})
	for i, tier := range c.Tiers {
		if tier.Alias == "" {
			return fmt.Errorf("tiers[%d].alias is required", i)
		}
		if len(tier.Dirs) == 0 {
			return fmt.Errorf("tier %s has no dirs", tier.Alias)
		}
		for _, dir := range tier.Dirs {
			if dir == "" {
				return fmt.Errorf("tier %s has an empty dir", tier.Alias)
			}
			loc := block.NewStoreLocation(tier.Alias, dir)
			if _, ok := seen[loc]; ok {
				return fmt.Errorf("duplicate location %s", loc)
			}
			seen[loc] = struct{}{}
		}
	}

	switch db.DBVendor(c.Storage.Backend) {
	case db.LevelDB, db.BoltDB:
		if c.Storage.Directory == "" {
			return fmt.Errorf("storage.directory is required for the %s backend", c.Storage.Backend)
		}
	case db.Redis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	case db.Memory:
	default:
		return fmt.Errorf("unsupported storage.backend %q", c.Storage.Backend)
	}
	return nil
}

// Locations lists every configured directory, in file order
func (c *WorkerConfig) Locations() []block.StoreLocation {
	var out []block.StoreLocation
	for _, tier := range c.Tiers {
		for _, dir := range tier.Dirs {
			out = append(out, block.NewStoreLocation(tier.Alias, dir))
		}
	}
	return out
}

// DBOptions maps the storage section onto the db factory
func (c *WorkerConfig) DBOptions() (db.DBVendor, db.DBOptions) {
	return db.DBVendor(c.Storage.Backend), db.DBOptions{
		Directory:    c.Storage.Directory,
		RedisAddress: c.Storage.RedisAddr,
		RedisDB:      c.Storage.RedisDB,
	}
}

type HeartbeatConfig struct {
	IntervalMs int `ini:"interval_ms"`
	TimeoutMs  int `ini:"timeout_ms"`
}

func (c *HeartbeatConfig) Interval() time.Duration {
	return utils.MillisOrDefault(c.IntervalMs, DefaultHeartbeatInterval)
}

func (c *HeartbeatConfig) Timeout() time.Duration {
	return utils.MillisOrDefault(c.TimeoutMs, DefaultHeartbeatTimeout)
}

type StorageCheckerConfig struct {
	IntervalMs int `ini:"interval_ms"`
}

func (c *StorageCheckerConfig) Interval() time.Duration {
	return utils.MillisOrDefault(c.IntervalMs, DefaultStorageCheckInterval)
}

// LoadHeartbeatConfig reads the heartbeat section from an .ini file
func LoadHeartbeatConfig(path string) (*HeartbeatConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	heartbeatSection := cfg.Section("heartbeat")
	heartbeatCfg := &HeartbeatConfig{}
	err = heartbeatSection.MapTo(heartbeatCfg)
	if err != nil {
		return nil, err
	}
	return heartbeatCfg, nil
}

func LoadStorageCheckerConfig(path string) (*StorageCheckerConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	checkerSection := cfg.Section("storage_checker")
	checkerCfg := &StorageCheckerConfig{}
	err = checkerSection.MapTo(checkerCfg)
	if err != nil {
		return nil, err
	}
	return checkerCfg, nil
}
