package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/rl1809/cartstore/internal/adapter/storage"
	"github.com/rl1809/cartstore/internal/core/domain"
	"github.com/rl1809/cartstore/internal/core/service"
	"github.com/rl1809/cartstore/internal/port"
)

const (
	itemID    = "stress-item"
	keyPrefix = "cartstore-stress:"
)

func main() {
	redisAddr := flag.String("redis", "", "redis address; empty runs against memory")
	stockCap := flag.Int("cap", 20, "stock cap for the item")
	totalRequests := flag.Int("requests", 50, "concurrent add requests")
	flag.Parse()

	if err := run(context.Background(), *redisAddr, *stockCap, *totalRequests); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, redisAddr string, stockCap, totalRequests int) error {
	var kv port.KeyValueStore = storage.NewMemoryAdapter()
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}

		// Clear previous test data
		rdb.Del(ctx, keyPrefix+service.DefaultCartKey, keyPrefix+service.DefaultCapsKey)
		kv = storage.NewRedisAdapter(rdb, keyPrefix, 0)
	}

	key := domain.NewKey(itemID, domain.NoVariant)
	store := service.NewCartStore(ctx, kv, service.CartStoreOptions{})
	if err := store.SetCap(ctx, key, stockCap); err != nil {
		return fmt.Errorf("failed to set cap: %w", err)
	}

	var published atomic.Int32
	cancel := store.Snapshots().Subscribe(func(domain.Snapshot) { published.Add(1) })
	defer cancel()
	published.Store(0)

	var failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Add(ctx, domain.Line{
				ItemID:    itemID,
				Name:      "Stress item",
				UnitPrice: decimal.NewFromInt(10),
				Quantity:  1,
			})
			if err != nil {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	quantity := store.Quantity(key)
	reloaded := service.NewCartStore(ctx, kv, service.CartStoreOptions{}).Quantity(key)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Stock Cap:        %d\n", stockCap)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Published:        %d\n", published.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	want := min(stockCap, totalRequests)
	var err error
	if quantity != want {
		err = multierr.Append(err, fmt.Errorf("FAIL: expected quantity %d, got %d", want, quantity))
	}
	if reloaded != quantity {
		err = multierr.Append(err, fmt.Errorf("FAIL: reloaded quantity %d differs from in-memory %d", reloaded, quantity))
	}
	if int(published.Load()) != totalRequests-int(failCount.Load()) {
		err = multierr.Append(err, fmt.Errorf("FAIL: expected one publish per successful add, got %d", published.Load()))
	}
	if err != nil {
		return err
	}
	fmt.Printf("PASS: quantity %d holds at the cap and survives reload\n", quantity)
	return nil
}
