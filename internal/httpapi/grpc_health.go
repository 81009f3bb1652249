package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"opsboard.org/internal/obs"
)

const grpcServiceName = "opsboard-api"

// GRPCHealth exposes the readiness probe through the standard gRPC health
// protocol for deployments that check liveness over gRPC.
type GRPCHealth struct {
	server *health.Server
	probe  ReadyProbe
}

// NewGRPCHealth creates the health service wrapper. Status starts as
// NOT_SERVING until the first probe run.
func NewGRPCHealth(rp ReadyProbe) *GRPCHealth {
	h := &GRPCHealth{
		server: health.NewServer(),
		probe:  rp,
	}
	h.server.SetServingStatus(grpcServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to a gRPC server.
func (h *GRPCHealth) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Refresh runs the probe once and updates the advertised status.
func (h *GRPCHealth) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.probe.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		obs.SetReady(false)
	} else {
		obs.SetReady(true)
	}
	h.server.SetServingStatus(grpcServiceName, status)
	h.server.SetServingStatus("", status)
}

// Watch refreshes the status periodically until the context is canceled.
func (h *GRPCHealth) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	h.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}
