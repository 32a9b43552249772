package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smolpuddle/puddle/pkg/order"
)

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

// NewMemPebbleStore opens a pebble store on an in-memory filesystem.
func NewMemPebbleStore() (*PebbleStore, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveOrder writes the order and its index entries in one batch.
// Saving the same hash again overwrites it.
func (s *PebbleStore) SaveOrder(o order.Order) error {
	data, err := encodeOrder(o)
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()

	h := o.Hash()
	if err := b.Set(orderKey(h), data, nil); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	if err := b.Set(sellerKey(o.Seller(), h), nil, nil); err != nil {
		return fmt.Errorf("failed to index seller: %w", err)
	}
	for _, c := range o.Collections() {
		if err := b.Set(collectionKey(c, h), nil, nil); err != nil {
			return fmt.Errorf("failed to index collection: %w", err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// GetOrder loads one order. Stored values that fail the shape check come
// back as ErrCorrupt.
func (s *PebbleStore) GetOrder(h common.Hash) (order.Order, error) {
	data, closer, err := s.db.Get(orderKey(h))
	if errors.Is(err, pebble.ErrNotFound) {
		return order.Order{}, ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	defer closer.Close()
	return decodeOrder(data)
}

// DeleteOrder removes the order and its index entries.
func (s *PebbleStore) DeleteOrder(h common.Hash) error {
	o, err := s.GetOrder(h)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Delete(orderKey(h), nil); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	// A corrupt value has no trustworthy seller; its index entries are left
	// for scans to skip.
	if err == nil {
		if err := b.Delete(sellerKey(o.Seller(), h), nil); err != nil {
			return fmt.Errorf("failed to delete seller index: %w", err)
		}
		for _, c := range o.Collections() {
			if err := b.Delete(collectionKey(c, h), nil); err != nil {
				return fmt.Errorf("failed to delete collection index: %w", err)
			}
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// ListBySeller loads every stored order of seller.
func (s *PebbleStore) ListBySeller(seller common.Address) ([]order.Order, error) {
	return s.listIndex(sellerPrefix(seller))
}

// ListByCollection loads every stored order trading collection.
func (s *PebbleStore) ListByCollection(collection common.Address) ([]order.Order, error) {
	return s.listIndex(collectionPrefix(collection))
}

// ListAll loads every stored order. Corrupt entries are skipped.
func (s *PebbleStore) ListAll() ([]order.Order, error) {
	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var orders []order.Order
	for iter.First(); iter.Valid(); iter.Next() {
		o, err := decodeOrder(iter.Value())
		if err != nil {
			continue // Skip invalid entries
		}
		orders = append(orders, o)
	}
	return orders, iter.Error()
}

func (s *PebbleStore) listIndex(prefix []byte) ([]order.Order, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var orders []order.Order
	for iter.First(); iter.Valid(); iter.Next() {
		h, ok := hashFromIndexKey(iter.Key())
		if !ok {
			continue
		}
		o, err := s.GetOrder(h)
		if err != nil {
			continue // dangling or corrupt
		}
		orders = append(orders, o)
	}
	return orders, iter.Error()
}
