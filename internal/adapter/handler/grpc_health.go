package handler

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/shopping-cart/internal/core/service"
)

// StoreServiceName is the health-check service name for the cart store.
const StoreServiceName = "shop.Store"

// HealthReporter publishes the store readiness over the gRPC health protocol.
// The store is SERVING once a catalog load has succeeded.
type HealthReporter struct {
	server *health.Server
	store  *service.Store
}

func NewHealthReporter(store *service.Store) *HealthReporter {
	h := &HealthReporter{
		server: health.NewServer(),
		store:  store,
	}
	h.Refresh()
	return h
}

func (h *HealthReporter) Server() grpc_health_v1.HealthServer {
	return h.server
}

func (h *HealthReporter) Refresh() {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if h.store.Loaded() {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(StoreServiceName, status)
}

// Watch refreshes the status every interval until ctx ends.
func (h *HealthReporter) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Refresh()
		}
	}
}
