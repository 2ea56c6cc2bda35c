package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/cartstore/internal/core/domain"
	"github.com/rl1809/cartstore/internal/core/feed"
	"github.com/rl1809/cartstore/internal/platform/logger"
	"github.com/rl1809/cartstore/internal/port"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

const (
	DefaultCartKey = "cart"
	DefaultCapsKey = "cart_stock_caps"
)

type CartStoreOptions struct {
	// CartKey and CapsKey name the two durable records.
	CartKey string
	CapsKey string
	Logger  *logger.Logger
	Metrics port.CartMetrics
}

// CartStore owns a cart snapshot and its stock caps, mirrors both into a
// KeyValueStore and publishes every committed snapshot.
//
// One mutex covers validate, persist and commit. Committed snapshots are
// queued under that mutex and delivered after it is released, in commit
// order, so observers may read the store from inside their callbacks.
type CartStore struct {
	mu      sync.Mutex
	kv      port.KeyValueStore
	cartKey string
	capsKey string
	log     *logger.Logger
	metrics port.CartMetrics

	lines domain.Snapshot
	caps  domain.Caps

	// pending holds committed snapshots not yet delivered; publishing is set
	// while one goroutine drains it.
	pending    []domain.Snapshot
	publishing bool

	snapshots *feed.Feed[domain.Snapshot]
	count     *feed.Feed[int]
	subtotal  *feed.Feed[decimal.Decimal]
}

// NewCartStore loads the cart and cap records from kv. Missing or unreadable
// records yield an empty cart; the failure is logged, never returned.
func NewCartStore(ctx context.Context, kv port.KeyValueStore, opts CartStoreOptions) *CartStore {
	if opts.CartKey == "" {
		opts.CartKey = DefaultCartKey
	}
	if opts.CapsKey == "" {
		opts.CapsKey = DefaultCapsKey
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = port.NopMetrics{}
	}

	s := &CartStore{
		kv:      kv,
		cartKey: opts.CartKey,
		capsKey: opts.CapsKey,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	s.caps = s.loadCaps(ctx)
	s.lines = s.loadLines(ctx, s.caps)

	s.snapshots = feed.New(s.lines, feed.WithCopy(domain.Snapshot.Clone))
	s.count = feed.Map(s.snapshots, domain.Snapshot.Count)
	s.subtotal = feed.Map(s.snapshots, domain.Snapshot.Subtotal)
	return s
}

// Snapshots publishes the full cart after every committed mutation. Every
// observer receives its own copy.
//
// Callbacks on the store's feeds run without the store's lock held and may
// read the store. A mutation made from inside a callback returns before its
// own snapshot is delivered; it is delivered after the current one.
func (s *CartStore) Snapshots() *feed.Feed[domain.Snapshot] { return s.snapshots }

// Count publishes the total quantity across lines.
func (s *CartStore) Count() *feed.Feed[int] { return s.count }

// Subtotal publishes the sum of quantity * unit price across lines.
func (s *CartStore) Subtotal() *feed.Feed[decimal.Decimal] { return s.subtotal }

// Snapshot returns a copy of the current cart.
func (s *CartStore) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Clone()
}

func (s *CartStore) Quantity(key domain.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Quantity(key)
}

func (s *CartStore) GetCap(key domain.Key) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps.Get(key)
}

// SetCap limits the quantity for key. A negative cap is treated as 0. An
// existing line above the cap is clamped down, or removed when cap is 0.
func (s *CartStore) SetCap(ctx context.Context, key domain.Key, limit int) error {
	if limit < 0 {
		limit = 0
	}
	return s.updateCap(ctx, "set_cap", key, &limit)
}

// ClearCap removes the limit for key. Cart lines are left as they are.
func (s *CartStore) ClearCap(ctx context.Context, key domain.Key) error {
	return s.updateCap(ctx, "clear_cap", key, nil)
}

func (s *CartStore) updateCap(ctx context.Context, op string, key domain.Key, limit *int) error {
	if err := key.Validate(); err != nil {
		return err
	}

	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	caps := s.caps.Clone()
	if limit == nil {
		delete(caps, key.String())
	} else {
		caps[key.String()] = *limit
	}
	if err := s.writeCaps(ctx, op, caps); err != nil {
		return err
	}
	s.caps = caps
	s.metrics.IncMutation(op)

	idx := s.lines.Find(key)
	if limit == nil || idx < 0 || s.lines[idx].Quantity <= *limit {
		return nil
	}

	lines := s.lines.Clone()
	if *limit == 0 {
		lines = removeAt(lines, idx)
	} else {
		lines[idx].Quantity = *limit
	}
	s.metrics.IncClamp(op)

	// The cap record is already durable, so a reload re-clamps the stored
	// cart to the same state even if this write fails.
	err := s.writeLines(ctx, op, lines)
	s.commit(lines)
	if err != nil {
		return fmt.Errorf("cap saved, clamped cart not saved: %w", err)
	}
	return nil
}

// Add merges line into the cart. An existing line with the same key keeps its
// display fields and gains line.Quantity; the sum saturates at
// domain.MaxLineQuantity and is clamped to the cap. The cart is persisted and
// published even when the quantity is unchanged.
func (s *CartStore) Add(ctx context.Context, line domain.Line) error {
	_, err := s.AddCounted(ctx, line)
	return err
}

// AddCounted is Add, also reporting how much the line's quantity grew after
// saturation and clamping.
func (s *CartStore) AddCounted(ctx context.Context, line domain.Line) (int, error) {
	if err := line.Key().Validate(); err != nil {
		return 0, err
	}
	if line.Quantity < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidQuantity, line.Quantity)
	}

	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := line.Key()
	lines := s.lines.Clone()
	before := 0
	idx := lines.Find(key)
	if idx >= 0 {
		before = lines[idx].Quantity
	}
	desired := domain.AddQuantity(before, line.Quantity)
	qty := s.caps.Clamp(key, desired)
	if qty < desired {
		s.metrics.IncClamp("add")
	}

	switch {
	case idx >= 0 && qty > 0:
		lines[idx].Quantity = qty
	case idx >= 0:
		lines = removeAt(lines, idx)
	case qty > 0:
		line.Quantity = qty
		lines = append(lines, line)
	}

	if err := s.apply(ctx, "add", lines); err != nil {
		return 0, err
	}
	return max(qty, 0) - before, nil
}

// SetQuantity sets the absolute quantity for an existing line, clamped to the
// cap. A result of 0 or less removes the line. Absent keys are ignored.
func (s *CartStore) SetQuantity(ctx context.Context, key domain.Key, quantity int) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.lines.Find(key)
	if idx < 0 {
		return nil
	}

	quantity = min(quantity, domain.MaxLineQuantity)
	effective := s.caps.Clamp(key, quantity)
	if effective < quantity {
		s.metrics.IncClamp("set_quantity")
	}
	lines := s.lines.Clone()
	if effective <= 0 {
		lines = removeAt(lines, idx)
	} else {
		lines[idx].Quantity = effective
	}
	return s.apply(ctx, "set_quantity", lines)
}

// Remove deletes the line for key. The cart is persisted and published even
// if there was no such line.
func (s *CartStore) Remove(ctx context.Context, key domain.Key) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.lines.Clone()
	if idx := lines.Find(key); idx >= 0 {
		lines = removeAt(lines, idx)
	}
	return s.apply(ctx, "remove", lines)
}

func (s *CartStore) Clear(ctx context.Context) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, "clear", domain.Snapshot{})
}

// apply persists lines and, once durable, commits and publishes them.
// Callers hold s.mu.
func (s *CartStore) apply(ctx context.Context, op string, lines domain.Snapshot) error {
	if err := s.writeLines(ctx, op, lines); err != nil {
		return err
	}
	s.commit(lines)
	s.metrics.IncMutation(op)
	return nil
}

// commit installs lines and queues them for delivery. Callers hold s.mu and
// call flush once they have released it.
func (s *CartStore) commit(lines domain.Snapshot) {
	s.lines = lines
	s.pending = append(s.pending, lines)
}

// flush delivers queued snapshots in commit order. Only one goroutine
// delivers at a time; any other caller returns at once and its snapshot is
// delivered by the active one.
func (s *CartStore) flush() {
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return
	}
	s.publishing = true

	delivered := false
	defer func() {
		// A panicking observer must not leave the queue claimed.
		if !delivered {
			s.mu.Lock()
			s.publishing = false
			s.mu.Unlock()
		}
	}()

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.snapshots.Publish(next)
		s.mu.Lock()
	}
	s.pending = nil
	s.publishing = false
	delivered = true
	s.mu.Unlock()
}

func removeAt(lines domain.Snapshot, idx int) domain.Snapshot {
	return append(lines[:idx], lines[idx+1:]...)
}

// drain empties the cart and returns what it held, atomically with respect to
// other mutations. An empty cart is returned as is without a write.
func (s *CartStore) drain(ctx context.Context, op string) (domain.Snapshot, error) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.lines.Clone()
	if len(lines) == 0 {
		return lines, nil
	}
	if err := s.apply(ctx, op, domain.Snapshot{}); err != nil {
		return nil, err
	}
	return lines, nil
}
