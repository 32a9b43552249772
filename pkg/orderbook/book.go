// Package orderbook holds the signed orders a node serves. Every order that
// enters from the API, a peer or the store passes the same admission checks.
package orderbook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/smolpuddle/puddle/pkg/chain"
	"github.com/smolpuddle/puddle/pkg/metrics"
	"github.com/smolpuddle/puddle/pkg/order"
	"github.com/smolpuddle/puddle/pkg/storage"
	"github.com/smolpuddle/puddle/pkg/util"
)

var (
	ErrInvalidCurrency = errors.New("order currency is invalid")
	ErrExpired         = errors.New("order expired")
	ErrDuplicate       = errors.New("order already known")
	ErrStillOpen       = errors.New("order is still open on chain")
	ErrNoStatusSource  = errors.New("no on-chain status source configured")
)

// Source tags where an order came from.
type Source string

const (
	SourceAPI    Source = "api"
	SourceGossip Source = "gossip"
	SourceStore  Source = "store"
)

// StatusSource reports the on-chain status of an order hash.
// *chain.Caller satisfies it.
type StatusSource interface {
	Status(ctx context.Context, hash common.Hash) (chain.OrderStatus, error)
}

// Hook is called after an order is admitted, outside the book lock.
type Hook func(o order.Order, src Source)

type Config struct {
	Store   storage.Store
	Journal storage.Journal
	Status  StatusSource
	Clock   util.Clock
	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
}

type Book struct {
	store   storage.Store
	journal storage.Journal
	status  StatusSource
	clock   util.Clock
	log     *zap.SugaredLogger
	metrics *metrics.Metrics

	mu    sync.Mutex // serializes admission and removal
	count int

	hooksMu sync.RWMutex
	hooks   []Hook
}

// New builds a Book over cfg.Store and counts what is already stored.
func New(cfg Config) (*Book, error) {
	if cfg.Store == nil {
		return nil, errors.New("orderbook: store is required")
	}
	if cfg.Journal == nil {
		cfg.Journal = storage.NewNopJournal()
	}
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(metrics.DefaultConfig())
	}

	all, err := cfg.Store.ListAll()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	b := &Book{
		store:   cfg.Store,
		journal: cfg.Journal,
		status:  cfg.Status,
		clock:   cfg.Clock,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		count:   len(all),
	}
	b.metrics.SetOrdersOpen(b.count)
	return b, nil
}

// OnOrder registers fn to run for every admitted order.
func (b *Book) OnOrder(fn Hook) {
	b.hooksMu.Lock()
	defer b.hooksMu.Unlock()
	b.hooks = append(b.hooks, fn)
}

// Submit decodes and admits an untrusted wire order.
func (b *Book) Submit(raw []byte, src Source) (order.Order, error) {
	o, err := order.ValidateShape(raw)
	if err != nil {
		b.reject(err, src)
		return order.Order{}, err
	}
	if err := b.Add(o, src); err != nil {
		return order.Order{}, err
	}
	return o, nil
}

// Add admits an already-decoded order. The carried hash is recomputed and
// the signature must recover to the seller.
func (b *Book) Add(o order.Order, src Source) error {
	if err := b.check(o); err != nil {
		b.reject(err, src)
		return err
	}

	b.mu.Lock()
	if _, err := b.store.GetOrder(o.Hash()); err == nil {
		b.mu.Unlock()
		b.reject(ErrDuplicate, src)
		return ErrDuplicate
	} else if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrCorrupt) {
		b.mu.Unlock()
		return fmt.Errorf("lookup order: %w", err)
	}
	if err := b.store.SaveOrder(o); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("save order: %w", err)
	}
	b.count++
	b.metrics.SetOrdersOpen(b.count)
	b.mu.Unlock()

	b.appendJournal("accepted", o.Hash())
	b.metrics.OrderAccepted(string(src))
	b.log.Infow("order_accepted",
		"hash", o.Hash().Hex(),
		"seller", o.Seller().Hex(),
		"currency", o.Currency().String(),
		"source", string(src),
	)

	b.hooksMu.RLock()
	hooks := append([]Hook(nil), b.hooks...)
	b.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(o, src)
	}
	return nil
}

func (b *Book) check(o order.Order) error {
	if o.Currency() == order.CurrencyInvalid {
		return ErrInvalidCurrency
	}
	if err := order.VerifySignature(o); err != nil {
		return err
	}
	if o.Expired(b.clock.Now()) {
		return ErrExpired
	}
	return nil
}

func (b *Book) reject(err error, src Source) {
	reason := RejectReason(err)
	b.metrics.OrderRejected(reason)
	b.log.Debugw("order_rejected", "reason", reason, "source", string(src), "error", err)
}

// RejectReason maps an admission error to a short label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, order.ErrValidation):
		return "shape"
	case errors.Is(err, ErrInvalidCurrency):
		return "currency"
	case errors.Is(err, order.ErrHashMismatch):
		return "hash"
	case errors.Is(err, order.ErrSignerMismatch), errors.Is(err, order.ErrSignatureFormat):
		return "signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	default:
		return "other"
	}
}

// Get returns a held order, expired or not.
func (b *Book) Get(h common.Hash) (order.Order, error) {
	return b.store.GetOrder(h)
}

// All returns every unexpired order.
func (b *Book) All() ([]order.Order, error) {
	orders, err := b.store.ListAll()
	if err != nil {
		return nil, err
	}
	return b.live(orders), nil
}

// BySeller returns the unexpired orders of seller.
func (b *Book) BySeller(seller common.Address) ([]order.Order, error) {
	orders, err := b.store.ListBySeller(seller)
	if err != nil {
		return nil, err
	}
	return b.live(orders), nil
}

// ByCollection returns the unexpired orders trading collection.
func (b *Book) ByCollection(collection common.Address) ([]order.Order, error) {
	orders, err := b.store.ListByCollection(collection)
	if err != nil {
		return nil, err
	}
	return b.live(orders), nil
}

func (b *Book) live(orders []order.Order) []order.Order {
	now := b.clock.Now()
	out := orders[:0]
	for _, o := range orders {
		if !o.Expired(now) {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of held orders.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Remove drops an order. reason is recorded in metrics and the journal.
func (b *Book) Remove(h common.Hash, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	// Corrupt entries were never counted.
	_, getErr := b.store.GetOrder(h)
	if err := b.store.DeleteOrder(h); err != nil {
		return err
	}
	if getErr == nil {
		b.count--
		b.metrics.SetOrdersOpen(b.count)
	}
	b.metrics.OrderRemoved(reason)
	b.appendJournal(reason, h)
	b.log.Infow("order_removed", "hash", h.Hex(), "reason", reason)
	return nil
}

func (b *Book) appendJournal(event string, h common.Hash) {
	if err := b.journal.Append(event, h); err != nil {
		b.log.Warnw("journal_append_failed", "event", event, "hash", h.Hex(), "error", err)
	}
}

// Prune drops every order expired at now and returns how many went.
func (b *Book) Prune(now time.Time) (int, error) {
	orders, err := b.store.ListAll()
	if err != nil {
		return 0, fmt.Errorf("list orders: %w", err)
	}
	n := 0
	for _, o := range orders {
		if !o.Expired(now) {
			continue
		}
		if err := b.Remove(o.Hash(), "expired"); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// Refresh asks the contract about h. Executed and canceled orders are
// dropped; an open order is kept and ErrStillOpen returned.
func (b *Book) Refresh(ctx context.Context, h common.Hash) (chain.OrderStatus, error) {
	if b.status == nil {
		return 0, ErrNoStatusSource
	}
	if _, err := b.store.GetOrder(h); err != nil && !errors.Is(err, storage.ErrCorrupt) {
		return 0, err
	}
	st, err := b.status.Status(ctx, h)
	if err != nil {
		return 0, fmt.Errorf("order status: %w", err)
	}
	if st == chain.StatusOpen {
		return st, ErrStillOpen
	}
	if err := b.Remove(h, st.String()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return st, err
	}
	return st, nil
}

// Sweep refreshes every held order and returns how many were dropped.
// Status lookups that fail are logged and skipped.
func (b *Book) Sweep(ctx context.Context) (int, error) {
	if b.status == nil {
		return 0, ErrNoStatusSource
	}
	orders, err := b.store.ListAll()
	if err != nil {
		return 0, fmt.Errorf("list orders: %w", err)
	}
	n := 0
	for _, o := range orders {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		_, err := b.Refresh(ctx, o.Hash())
		switch {
		case err == nil:
			n++
		case errors.Is(err, ErrStillOpen), errors.Is(err, storage.ErrNotFound):
		default:
			b.log.Warnw("status_refresh_failed", "hash", o.Hash().Hex(), "error", err)
		}
	}
	return n, nil
}

// RunPruner prunes expired orders, and sweeps on-chain status when a source
// is configured, every interval until ctx is done.
func (b *Book) RunPruner(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.clock.After(interval):
		}
		if n, err := b.Prune(b.clock.Now()); err != nil {
			b.log.Warnw("prune_failed", "error", err)
		} else if n > 0 {
			b.log.Infow("orders_pruned", "count", n)
		}
		if b.status == nil {
			continue
		}
		if n, err := b.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.log.Warnw("sweep_failed", "error", err)
		} else if n > 0 {
			b.log.Infow("orders_settled", "count", n)
		}
	}
}
