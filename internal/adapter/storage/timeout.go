package storage

import (
	"context"
	"time"

	"github.com/rl1809/cartstore/internal/port"
)

type timeoutStore struct {
	next    port.KeyValueStore
	timeout time.Duration
}

// WithTimeout bounds every call on next by timeout. A non-positive timeout
// returns next unchanged.
func WithTimeout(next port.KeyValueStore, timeout time.Duration) port.KeyValueStore {
	if timeout <= 0 {
		return next
	}
	return &timeoutStore{next: next, timeout: timeout}
}

func (t *timeoutStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Get(ctx, key)
}

func (t *timeoutStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Set(ctx, key, value)
}

func (t *timeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Ping(ctx)
}
