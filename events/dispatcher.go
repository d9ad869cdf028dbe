package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mezonai/blockworker/block"
	"github.com/mezonai/blockworker/logx"
	"github.com/mezonai/blockworker/monitoring"
)

type ListenerID string

type registration struct {
	id       ListenerID
	listener Listener
}

// Dispatcher fans block store mutations out to every registered Listener, in registration order.
// It implements Listener itself so a store only ever holds one.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []registration
}

var _ Listener = (*Dispatcher)(nil)

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) generateUUIDID() ListenerID {
	id := uuid.Must(uuid.NewV7())
	return ListenerID(id.String())
}

// Register adds l to the dispatch list and returns the id to unregister it with.
func (d *Dispatcher) Register(l Listener) ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.generateUUIDID()
	d.listeners = append(d.listeners, registration{id: id, listener: l})

	logx.Info("EVENTS", fmt.Sprintf("Listener registered | listener_id=%s | total_listeners=%d", id, len(d.listeners)))
	return id
}

// Unregister removes a listener by ID
func (d *Dispatcher) Unregister(id ListenerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, r := range d.listeners {
		if r.id != id {
			continue
		}
		d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
		logx.Info("EVENTS", fmt.Sprintf("Listener unregistered | listener_id=%s | remaining_listeners=%d", id, len(d.listeners)))
		return true
	}

	logx.Warn("EVENTS", fmt.Sprintf("Attempted to unregister non-existent listener | listener_id=%s", id))
	return false
}

// Count returns the number of registered listeners
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.listeners)
}

func (d *Dispatcher) snapshot() []registration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.listeners
}

// each runs fn on every listener outside the registry lock, so a listener may (un)register others.
func (d *Dispatcher) each(event EventType, fn func(Listener)) {
	listeners := d.snapshot()
	logx.Debug("EVENTS", fmt.Sprintf("Dispatching event | event_type=%s | listeners=%d", event, len(listeners)))
	monitoring.RecordBlockEvent(string(event))
	for _, r := range listeners {
		fn(r.listener)
	}
}

func (d *Dispatcher) OnMoveBlockByClient(blockID block.BlockID, oldLocation, newLocation block.StoreLocation) {
	d.each(EventMoveBlockByClient, func(l Listener) {
		l.OnMoveBlockByClient(blockID, oldLocation, newLocation)
	})
}

func (d *Dispatcher) OnMoveBlockByWorker(blockID block.BlockID, oldLocation, newLocation block.StoreLocation) {
	d.each(EventMoveBlockByWorker, func(l Listener) {
		l.OnMoveBlockByWorker(blockID, oldLocation, newLocation)
	})
}

func (d *Dispatcher) OnRemoveBlockByClient(blockID block.BlockID) {
	d.each(EventRemoveBlockByClient, func(l Listener) {
		l.OnRemoveBlockByClient(blockID)
	})
}

func (d *Dispatcher) OnRemoveBlockByWorker(blockID block.BlockID) {
	d.each(EventRemoveBlockByWorker, func(l Listener) {
		l.OnRemoveBlockByWorker(blockID)
	})
}

func (d *Dispatcher) OnBlockLost(blockID block.BlockID) {
	d.each(EventBlockLost, func(l Listener) {
		l.OnBlockLost(blockID)
	})
}

func (d *Dispatcher) OnStorageLost(tierAlias string, dirPath string) {
	d.each(EventStorageLost, func(l Listener) {
		l.OnStorageLost(tierAlias, dirPath)
	})
}
