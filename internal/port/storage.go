package port

import "context"

// KeyValueStore is the durable layer behind a cart. Values are opaque
// serialized records.
type KeyValueStore interface {
	// Get returns the value stored under key; found is false if there is none.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
