package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"google.golang.org/grpc"

	"github.com/rl1809/cartstore/internal/adapter/catalog"
	"github.com/rl1809/cartstore/internal/adapter/handler"
	"github.com/rl1809/cartstore/internal/adapter/metrics"
	"github.com/rl1809/cartstore/internal/adapter/notify"
	"github.com/rl1809/cartstore/internal/adapter/storage"
	"github.com/rl1809/cartstore/internal/config"
	"github.com/rl1809/cartstore/internal/core/service"
	"github.com/rl1809/cartstore/internal/platform/logger"
	"github.com/rl1809/cartstore/internal/port"
)

const serviceName = "cartstore"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment", nil)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	kv, closer, err := openStorage(ctx, cfg)
	if err != nil {
		logg.Error(ctx, "failed to open cart storage", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	logg.Info(ctx, "cart storage ready", "backend", cfg.Storage.Backend)
	kv = storage.WithTimeout(kv, cfg.Storage.OpTimeout)

	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		logg.Error(ctx, "failed to load catalog", err, "path", cfg.Catalog.Path)
		os.Exit(1)
	}
	logg.Info(ctx, "catalog loaded", "items", cat.Len())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	notifier := notify.NewLogNotifier(logg)

	sessions := service.NewSessions(kv, service.SessionsOptions{
		Logger:      logg,
		Metrics:     metrics.NewCartMetrics(registry),
		Notifier:    notifier,
		MaxResident: cfg.Sessions.MaxResident,
		IdleTimeout: cfg.Sessions.IdleTimeout,
	})

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	healthHandler := handler.NewGRPCHealthHandler(kv, logg)
	healthHandler.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.App.GRPCAddr)
	if err != nil {
		logg.Error(ctx, "failed to listen", err, "addr", cfg.App.GRPCAddr)
		os.Exit(1)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		healthHandler.Run(ctx, cfg.App.HealthInterval)
	}()
	go func() {
		defer wg.Done()
		logg.Info(ctx, "gRPC server listening", "addr", cfg.App.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logg.Error(ctx, "gRPC server error", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(handler.HTTPHandlerParams{
		Sessions: sessions,
		Catalog:  cat,
		Notifier: notifier,
		Storage:  kv,
		Logger:   logg,
	})
	httpServer := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           httpHandler.Routes(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logg.Info(ctx, "HTTP server listening", "addr", cfg.App.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "HTTP server error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info(ctx, "shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "HTTP shutdown", err)
	}
	logg.Info(ctx, "HTTP server stopped")

	healthHandler.Shutdown()
	grpcServer.GracefulStop()
	cancel()
	wg.Wait()
	logg.Info(ctx, "gRPC server stopped")

	sessions.Close()
	if err := closer.Close(); err != nil {
		logg.Error(context.Background(), "closing storage", err)
	}
	logg.Info(context.Background(), "connections closed")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openStorage(ctx context.Context, cfg *config.Config) (port.KeyValueStore, io.Closer, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("ping redis: %w", err), rdb.Close())
		}
		return storage.NewRedisAdapter(rdb, cfg.Redis.KeyPrefix, cfg.Redis.CartTTL), rdb, nil

	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		if err := db.PingContext(ctx); err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("ping mysql: %w", err), db.Close())
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return nil, nil, multierr.Append(err, db.Close())
		}
		return adapter, db, nil

	case config.BackendSQLite:
		adapter, err := storage.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return adapter, adapter, nil

	default:
		return storage.NewMemoryAdapter(), closerFunc(func() error { return nil }), nil
	}
}
