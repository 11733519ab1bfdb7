package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to gRPC health checks.
const ServiceName = "recount.v0"

// DefaultHealthInterval is used when WatchHealth gets a non-positive interval.
const DefaultHealthInterval = 10 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewGRPC returns a gRPC server with the standard health service registered.
// Both the overall and the named service report NOT_SERVING until WatchHealth
// has pinged the database.
func NewGRPC() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// WatchHealth pings db right away and then every interval, mirroring the
// result into hs until ctx ends.
func WatchHealth(ctx context.Context, db Pinger, hs *health.Server, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := healthpb.HealthCheckResponse_NOT_SERVING
	first := true
	for {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		err := db.PingContext(pingCtx)
		cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if status != last || first {
			logger.Info("health changed", zap.String("status", status.String()), zap.Error(err))
			last, first = status, false
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ServiceName, status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
