package events

import "github.com/mezonai/blockworker/block"

// EventType names a block store mutation notification.
type EventType string

const (
	EventMoveBlockByClient   EventType = "MoveBlockByClient"
	EventMoveBlockByWorker   EventType = "MoveBlockByWorker"
	EventRemoveBlockByClient EventType = "RemoveBlockByClient"
	EventRemoveBlockByWorker EventType = "RemoveBlockByWorker"
	EventBlockLost           EventType = "BlockLost"
	EventStorageLost         EventType = "StorageLost"
)

// Listener receives block store mutations synchronously, at the point of mutation.
// Implementations must be safe for concurrent use; the store calls them from any goroutine.
type Listener interface {
	// OnMoveBlockByClient is called when a client adds a block to, or moves a block into, newLocation.
	// oldLocation is the zero StoreLocation for a fresh add.
	OnMoveBlockByClient(blockID block.BlockID, oldLocation, newLocation block.StoreLocation)

	// OnMoveBlockByWorker is the worker-initiated counterpart of OnMoveBlockByClient
	// (promotion, eviction to a lower tier, ...).
	OnMoveBlockByWorker(blockID block.BlockID, oldLocation, newLocation block.StoreLocation)

	OnRemoveBlockByClient(blockID block.BlockID)

	OnRemoveBlockByWorker(blockID block.BlockID)

	// OnBlockLost is called when a block disappears without being removed, e.g. its directory failed.
	OnBlockLost(blockID block.BlockID)

	// OnStorageLost is called once per lost directory notification. Repeats are delivered as repeats.
	OnStorageLost(tierAlias string, dirPath string)
}
