package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/cartstore/internal/platform/logger"
	"github.com/rl1809/cartstore/internal/port"
)

// CartServiceName is the service name reported by the health endpoint in
// addition to the server-wide "" entry.
const CartServiceName = "cartstore.Cart"

// GRPCHealthHandler serves grpc.health.v1 and reports SERVING while the
// durable cart storage answers pings.
type GRPCHealthHandler struct {
	server  *health.Server
	storage port.KeyValueStore
	log     *logger.Logger
}

func NewGRPCHealthHandler(storage port.KeyValueStore, log *logger.Logger) *GRPCHealthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GRPCHealthHandler{
		server:  health.NewServer(),
		storage: storage,
		log:     log,
	}
}

func (h *GRPCHealthHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Probe pings storage once and publishes the result.
func (h *GRPCHealthHandler) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.storage.Ping(ctx); err != nil {
		h.log.Warn(ctx, "cart storage ping failed", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(CartServiceName, status)
	return status
}

const defaultProbeInterval = 10 * time.Second

// Run probes every interval until ctx is done.
func (h *GRPCHealthHandler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.probeWithTimeout(ctx, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.probeWithTimeout(ctx, interval)
		}
	}
}

func (h *GRPCHealthHandler) probeWithTimeout(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	h.Probe(ctx)
}

// Shutdown reports NOT_SERVING for every service and ignores later probes.
func (h *GRPCHealthHandler) Shutdown() {
	h.server.Shutdown()
}

// HealthServer exposes the underlying health service.
func (h *GRPCHealthHandler) HealthServer() healthpb.HealthServer {
	return h.server
}
