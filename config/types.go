package config

// WorkerNode identifies this worker to its masters
type WorkerNode struct {
	ID                   string `yaml:"id"`
	Address              string `yaml:"address"`
	RegisterToAllMasters bool   `yaml:"register_to_all_masters"`
}

// TierConfig lists the storage directories of one tier
type TierConfig struct {
	Alias string   `yaml:"alias"`
	Dirs  []string `yaml:"dirs"`
}

// StorageConfig selects where block metadata is persisted
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Directory string `yaml:"directory"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// WorkerConfig holds the configuration from worker.yml
type WorkerConfig struct {
	Worker      WorkerNode    `yaml:"worker"`
	Masters     []string      `yaml:"masters"`
	Tiers       []TierConfig  `yaml:"tiers"`
	Storage     StorageConfig `yaml:"storage"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// ConfigFile is the top-level structure for worker.yml
type ConfigFile struct {
	Config WorkerConfig `yaml:"config"`
}

