package storage

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smolpuddle/puddle/pkg/order"
)

// MemoryStore keeps orders in a map. Order values are immutable, so they are
// stored and handed out as-is.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[common.Hash]order.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[common.Hash]order.Order)}
}

func (s *MemoryStore) SaveOrder(o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.Hash()] = o
	return nil
}

func (s *MemoryStore) GetOrder(h common.Hash) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[h]
	if !ok {
		return order.Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) DeleteOrder(h common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[h]; !ok {
		return ErrNotFound
	}
	delete(s.orders, h)
	return nil
}

func (s *MemoryStore) ListBySeller(seller common.Address) ([]order.Order, error) {
	return s.filter(func(o order.Order) bool { return o.Seller() == seller }), nil
}

func (s *MemoryStore) ListByCollection(collection common.Address) ([]order.Order, error) {
	return s.filter(func(o order.Order) bool {
		for _, c := range o.Collections() {
			if c == collection {
				return true
			}
		}
		return false
	}), nil
}

func (s *MemoryStore) ListAll() ([]order.Order, error) {
	return s.filter(func(order.Order) bool { return true }), nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) filter(keep func(order.Order) bool) []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []order.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		hi, hj := out[i].Hash(), out[j].Hash()
		return bytes.Compare(hi[:], hj[:]) < 0
	})
	return out
}
