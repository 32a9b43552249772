// Package storage persists signed orders. PebbleStore is the on-disk cache a
// node restarts from; MemoryStore serves tests and ephemeral nodes.
package storage

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smolpuddle/puddle/pkg/order"
)

var (
	// ErrNotFound is returned for a hash that is not stored.
	ErrNotFound = errors.New("order not found")

	// ErrCorrupt marks a stored value that no longer passes the shape check.
	ErrCorrupt = errors.New("stored order is corrupt")
)

// Store is an order cache keyed by order hash with seller and collection
// indexes. List results are ordered by hash.
type Store interface {
	SaveOrder(o order.Order) error
	GetOrder(h common.Hash) (order.Order, error)
	DeleteOrder(h common.Hash) error
	ListBySeller(seller common.Address) ([]order.Order, error)
	ListByCollection(collection common.Address) ([]order.Order, error)
	ListAll() ([]order.Order, error)
	Close() error
}

var (
	_ Store = (*PebbleStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
