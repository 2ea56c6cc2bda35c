package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/cartstore/internal/adapter/storage"
)

type flakyStore struct {
	*storage.MemoryAdapter
	err error
}

func (f *flakyStore) Ping(context.Context) error { return f.err }

func TestGRPCHealth_TracksStorage(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryAdapter: storage.NewMemoryAdapter()}
	h := NewGRPCHealthHandler(store, nil)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Probe(ctx))
	resp, err := h.HealthServer().Check(ctx, &healthpb.HealthCheckRequest{Service: CartServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	store.err = errors.New("connection refused")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, h.Probe(ctx))
	resp, err = h.HealthServer().Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestGRPCHealth_Shutdown(t *testing.T) {
	ctx := context.Background()
	h := NewGRPCHealthHandler(storage.NewMemoryAdapter(), nil)
	h.Probe(ctx)

	h.Shutdown()
	h.Probe(ctx)

	resp, err := h.HealthServer().Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
