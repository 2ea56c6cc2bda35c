package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "cartstore:"

type RedisAdapter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisAdapter stores records under prefix+key. A non-zero ttl expires
// records that have not been written for that long, so abandoned carts age
// out.
func NewRedisAdapter(client *redis.Client, prefix string, ttl time.Duration) *RedisAdapter {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisAdapter{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
