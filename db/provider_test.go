package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *LevelDBProvider {
	t.Helper()
	p, err := NewMemLevelDBProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestLevelDBGetPutDelete(t *testing.T) {
	p := newTestProvider(t)

	v, err := p.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, p.Put([]byte("k"), []byte("v")))
	v, err = p.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	ok, err := p.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Delete([]byte("k")))
	ok, err = p.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLevelDBBatch(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.Put([]byte("gone"), []byte("x")))

	batch := p.Batch()
	require.NoError(t, batch.Write())
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("gone"))
	assert.Equal(t, 3, batch.Len())
	require.NoError(t, batch.Write())

	v, err := p.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
	ok, err := p.Has([]byte("gone"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLevelDBIteratePrefix(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.Put([]byte("block:1"), []byte("a")))
	require.NoError(t, p.Put([]byte("block:2"), []byte("b")))
	require.NoError(t, p.Put([]byte("other:1"), []byte("c")))

	var keys []string
	require.NoError(t, p.IteratePrefix([]byte("block:"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	}))
	assert.Equal(t, []string{"block:1", "block:2"}, keys)

	keys = nil
	require.NoError(t, p.IteratePrefix([]byte("block:"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return false
	}))
	assert.Len(t, keys, 1)
}

func TestCloseTwice(t *testing.T) {
	p, err := NewMemLevelDBProvider()
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestCreateDBProvider(t *testing.T) {
	p, err := CreateDBProvider(Memory, DBOptions{})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = CreateDBProvider(LevelDB, DBOptions{})
	assert.Error(t, err)

	_, err = CreateDBProvider("rocksdb", DBOptions{})
	assert.Error(t, err)

	dir := t.TempDir()
	p, err = CreateDBProvider(LevelDB, DBOptions{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestRedisKeyRendering(t *testing.T) {
	key := append([]byte(blockKeyPrefix), 0, 0, 0, 0, 0, 0, 1, 2)
	assert.Equal(t, "block:258", convertKeyToHumanReadable(key))
	assert.Equal(t, "block:", convertKeyToHumanReadable([]byte(blockKeyPrefix)))
	assert.Equal(t, "meta:version", convertKeyToHumanReadable([]byte("meta:version")))
}

func TestBoltProvider(t *testing.T) {
	p, err := NewBoltProvider(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	defer p.Close()

	v, err := p.Get([]byte("block:9"))
	require.NoError(t, err)
	assert.Nil(t, v)

	batch := p.Batch()
	batch.Put([]byte("block:1"), []byte("a"))
	batch.Put([]byte("block:2"), []byte("b"))
	batch.Put([]byte("other:1"), []byte("c"))
	assert.Equal(t, 3, batch.Len())
	require.NoError(t, batch.Write())

	require.NoError(t, p.Delete([]byte("block:1")))
	ok, err := p.Has([]byte("block:1"))
	require.NoError(t, err)
	assert.False(t, ok)

	got := map[string]string{}
	require.NoError(t, p.IteratePrefix([]byte("block:"), func(key, value []byte) bool {
		got[string(key)] = string(value)
		return true
	}))
	assert.Equal(t, map[string]string{"block:2": "b"}, got)
	require.NoError(t, p.Close())
}

func TestCreateBoltProvider(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	p, err := CreateDBProvider(BoltDB, DBOptions{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, p.Put([]byte("k"), []byte("v")))
	require.NoError(t, p.Close())

	_, err = CreateDBProvider(BoltDB, DBOptions{})
	assert.Error(t, err)
}
