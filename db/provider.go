package db

// Provider is the key/value backend block metadata is persisted in. Keys are opaque bytes;
// the block store owns their layout.
type Provider interface {
	// Get returns nil without error when the key is absent
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)

	// IteratePrefix calls fn for every pair whose key starts with prefix until fn returns false.
	// fn may keep key and value.
	IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error

	// Batch starts a set of writes applied atomically by Write
	Batch() Batch

	Close() error
}

// Batch collects writes until Write. A batch is not safe for concurrent use.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	// Len is the number of queued operations
	Len() int
	Write() error
}
