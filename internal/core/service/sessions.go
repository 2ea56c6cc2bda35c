package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rl1809/cartstore/internal/platform/logger"
	"github.com/rl1809/cartstore/internal/port"
)

var ErrInvalidCartID = errors.New("invalid cart id")

const (
	DefaultMaxResident = 10000
	DefaultIdleTimeout = 30 * time.Minute
)

// Session is one shopper's cart and its checkout.
type Session struct {
	ID       string
	Cart     *CartStore
	Checkout *Checkout

	once sync.Once
	done chan struct{}
}

// Done is closed when the session is evicted. Its cart keeps working, but a
// later Open for the same id loads a new session from storage.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) close() {
	s.once.Do(func() {
		s.Checkout.Close()
		close(s.done)
	})
}

type SessionsOptions struct {
	Logger   *logger.Logger
	Metrics  port.CartMetrics
	Notifier port.Notifier
	// MaxResident bounds how many carts stay in memory; the least recently
	// used is evicted first.
	MaxResident int
	// IdleTimeout evicts a cart not opened for this long.
	IdleTimeout time.Duration
}

// Sessions hosts one cart per cart id on a shared durable store. Carts are
// opened lazily and evicted when idle or when MaxResident is exceeded; their
// state stays in the durable store.
type Sessions struct {
	kv   port.KeyValueStore
	opts SessionsOptions

	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

func NewSessions(kv port.KeyValueStore, opts SessionsOptions) *Sessions {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.MaxResident <= 0 {
		opts.MaxResident = DefaultMaxResident
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	s := &Sessions{kv: kv, opts: opts}
	s.sessions = expirable.NewLRU(opts.MaxResident, s.evicted, opts.IdleTimeout)
	return s
}

func (s *Sessions) evicted(cartID string, sess *Session) {
	sess.close()
	s.opts.Logger.Debug(s.opts.Logger.WithCartID(context.Background(), cartID), "cart session evicted")
}

// Create opens a cart under a fresh id.
func (s *Sessions) Create(ctx context.Context) (*Session, error) {
	return s.Open(ctx, uuid.NewString())
}

// Open returns the session for cartID, loading it from storage on first use.
func (s *Sessions) Open(ctx context.Context, cartID string) (*Session, error) {
	id, err := uuid.Parse(cartID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCartID, err)
	}
	cartID = id.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions.Get(cartID); ok {
		// Re-adding restarts the idle timer.
		s.sessions.Add(cartID, sess)
		return sess, nil
	}

	ctx = s.opts.Logger.WithCartID(ctx, cartID)
	cart := NewCartStore(ctx, s.kv, CartStoreOptions{
		CartKey: DefaultCartKey + ":" + cartID,
		CapsKey: DefaultCapsKey + ":" + cartID,
		Logger:  s.opts.Logger,
		Metrics: s.opts.Metrics,
	})
	sess := &Session{
		ID:   cartID,
		Cart: cart,
		Checkout: NewCheckout(cart, CheckoutOptions{
			CartID:   cartID,
			Notifier: s.opts.Notifier,
		}),
		done: make(chan struct{}),
	}
	// An expired entry may still be held; Remove runs its eviction so Add
	// does not overwrite it silently.
	s.sessions.Remove(cartID)
	s.sessions.Add(cartID, sess)
	s.opts.Logger.Debug(ctx, "cart session opened", "lines", len(cart.Snapshot()))
	return sess, nil
}

// Len reports how many carts are resident.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Len()
}

// Close evicts every resident session. State stays in the durable store.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Purge()
}
