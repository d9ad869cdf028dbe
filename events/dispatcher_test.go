package events

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mezonai/blockworker/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu    sync.Mutex
	name  string
	calls []string
	log   *[]string
}

func (r *recordingListener) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if r.log != nil {
		*r.log = append(*r.log, r.name+":"+call)
	}
}

func (r *recordingListener) OnMoveBlockByClient(id block.BlockID, oldLoc, newLoc block.StoreLocation) {
	r.record(fmt.Sprintf("move-client %d %s->%s", id, oldLoc, newLoc))
}

func (r *recordingListener) OnMoveBlockByWorker(id block.BlockID, oldLoc, newLoc block.StoreLocation) {
	r.record(fmt.Sprintf("move-worker %d %s->%s", id, oldLoc, newLoc))
}

func (r *recordingListener) OnRemoveBlockByClient(id block.BlockID) {
	r.record(fmt.Sprintf("remove-client %d", id))
}

func (r *recordingListener) OnRemoveBlockByWorker(id block.BlockID) {
	r.record(fmt.Sprintf("remove-worker %d", id))
}

func (r *recordingListener) OnBlockLost(id block.BlockID) {
	r.record(fmt.Sprintf("lost %d", id))
}

func (r *recordingListener) OnStorageLost(tier, dir string) {
	r.record(fmt.Sprintf("storage-lost %s %s", tier, dir))
}

func TestDispatcherFansOutAllEvents(t *testing.T) {
	d := NewDispatcher()
	l := &recordingListener{}
	d.Register(l)

	a := block.NewStoreLocation(block.TierMEM, "/mnt/ramdisk")
	b := block.NewStoreLocation(block.TierSSD, "/mnt/ssd0")

	d.OnMoveBlockByClient(1, block.StoreLocation{}, a)
	d.OnMoveBlockByWorker(1, a, b)
	d.OnRemoveBlockByClient(2)
	d.OnRemoveBlockByWorker(3)
	d.OnBlockLost(4)
	d.OnStorageLost(block.TierSSD, "/mnt/ssd0")

	assert.Equal(t, []string{
		"move-client 1 :->MEM:/mnt/ramdisk",
		"move-worker 1 MEM:/mnt/ramdisk->SSD:/mnt/ssd0",
		"remove-client 2",
		"remove-worker 3",
		"lost 4",
		"storage-lost SSD /mnt/ssd0",
	}, l.calls)
}

func TestDispatcherRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string
	first := &recordingListener{name: "first", log: &order}
	second := &recordingListener{name: "second", log: &order}
	d.Register(first)
	d.Register(second)

	d.OnBlockLost(9)

	assert.Equal(t, []string{"first:lost 9", "second:lost 9"}, order)
}

func TestDispatcherUnregister(t *testing.T) {
	d := NewDispatcher()
	l1 := &recordingListener{}
	l2 := &recordingListener{}
	id1 := d.Register(l1)
	d.Register(l2)
	require.Equal(t, 2, d.Count())

	assert.True(t, d.Unregister(id1))
	assert.False(t, d.Unregister(id1))
	assert.Equal(t, 1, d.Count())

	d.OnRemoveBlockByClient(5)
	assert.Empty(t, l1.calls)
	assert.Equal(t, []string{"remove-client 5"}, l2.calls)
}

func TestDispatcherConcurrentDelivery(t *testing.T) {
	d := NewDispatcher()
	l := &recordingListener{}
	d.Register(l)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.OnRemoveBlockByWorker(block.BlockID(id))
		}(i)
	}
	wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.calls, 50)
}
