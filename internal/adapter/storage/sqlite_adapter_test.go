package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/cartstore/internal/core/domain"
	"github.com/rl1809/cartstore/internal/core/service"
)

func setupSQLite(t *testing.T) *SQLiteAdapter {
	t.Helper()
	adapter, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func TestSQLiteAdapter_SetGet(t *testing.T) {
	ctx := context.Background()
	adapter := setupSQLite(t)

	_, found, err := adapter.Get(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, adapter.Set(ctx, "cart", []byte(`[]`)))
	require.NoError(t, adapter.Set(ctx, "cart", []byte(`[{"itemId":"1"}]`)))

	value, found, err := adapter.Get(ctx, "cart")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"itemId":"1"}]`, string(value))
	assert.NoError(t, adapter.Ping(ctx))
}

func TestSQLiteAdapter_BacksCartStore(t *testing.T) {
	ctx := context.Background()
	adapter := setupSQLite(t)
	key := domain.NewKey("10", "L")

	store := service.NewCartStore(ctx, adapter, service.CartStoreOptions{})
	require.NoError(t, store.SetCap(ctx, key, 3))
	require.NoError(t, store.Add(ctx, domain.Line{ItemID: "10", VariantID: "L", Name: "Shirt", Quantity: 5}))

	reloaded := service.NewCartStore(ctx, adapter, service.CartStoreOptions{})
	assert.Equal(t, 3, reloaded.Quantity(key))
	limit, ok := reloaded.GetCap(key)
	assert.True(t, ok)
	assert.Equal(t, 3, limit)
}
