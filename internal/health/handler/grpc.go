package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server implements grpc.health.v1.Health for readiness probes. The service reports
// NOT_SERVING when the database ping fails.
type Server struct {
	grpc_health_v1.UnimplementedHealthServer
	pinger Pinger
}

// NewServer returns a new Health gRPC server. A nil pinger always reports SERVING.
func NewServer(pinger Pinger) *Server {
	return &Server{pinger: pinger}
}

func (s *Server) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if s.pinger == nil {
		return serving(grpc_health_v1.HealthCheckResponse_SERVING), nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.pinger.PingContext(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("health: database ping failed")
		return serving(grpc_health_v1.HealthCheckResponse_NOT_SERVING), nil
	}
	return serving(grpc_health_v1.HealthCheckResponse_SERVING), nil
}

func serving(st grpc_health_v1.HealthCheckResponse_ServingStatus) *grpc_health_v1.HealthCheckResponse {
	return &grpc_health_v1.HealthCheckResponse{Status: st}
}
