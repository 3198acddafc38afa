package server

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	auditv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/audit/v1"
	authv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/auth/v1"
	sessionv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/session/v1"
	userv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/user/v1"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/audit"
	audithandler "github.com/Zaid-daoud/Farkoosh-Backend/internal/audit/handler"
	auditrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/audit/repository"
	healthhandler "github.com/Zaid-daoud/Farkoosh-Backend/internal/health/handler"
	identityhandler "github.com/Zaid-daoud/Farkoosh-Backend/internal/identity/handler"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/server/interceptors"
	sessionhandler "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/handler"
	sessionrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/repository"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry"
	userhandler "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/handler"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Auth backs AuthService. If nil, auth RPCs return Unimplemented.
	Auth identityhandler.Authenticator
	// UserRepo backs UserService. If nil, GetUser returns Unimplemented.
	UserRepo userhandler.UserGetter
	// SessionRepo backs SessionService. If nil, session RPCs return Unimplemented.
	SessionRepo sessionrepo.Repository
	// AuditRepo backs AuditService. If nil, ListAuditLogs returns Unimplemented.
	AuditRepo auditrepo.Repository
	// AuditLogger records authenticated RPCs and session revocations. May be nil.
	AuditLogger audit.AuditLogger
	// Emitter receives request and session events. May be nil.
	Emitter telemetry.EventEmitter
	// HealthPinger is used by the health service for readiness (e.g. *sql.DB). If nil, Check always reports SERVING.
	HealthPinger healthhandler.Pinger
}

// PublicMethods are reachable without an access token.
var PublicMethods = map[string]bool{
	authv1.AuthService_Register_FullMethodName:     true,
	authv1.AuthService_Login_FullMethodName:        true,
	authv1.AuthService_RefreshToken_FullMethodName: true,
	grpc_health_v1.Health_Check_FullMethodName:     true,
	grpc_health_v1.Health_Watch_FullMethodName:     true,
}

// quietMethods are probed often and are neither logged, audited nor emitted.
var quietMethods = map[string]bool{
	grpc_health_v1.Health_Check_FullMethodName: true,
	grpc_health_v1.Health_Watch_FullMethodName: true,
}

// auditSkipMethods write their own audit rows.
var auditSkipMethods = map[string]bool{
	sessionv1.SessionService_RevokeSession_FullMethodName: true,
	grpc_health_v1.Health_Check_FullMethodName:            true,
	grpc_health_v1.Health_Watch_FullMethodName:            true,
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - AuthService    → internal/identity/handler
//   - UserService    → internal/user/handler
//   - SessionService → internal/session/handler
//   - AuditService   → internal/audit/handler
//   - Health         → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth))
	userv1.RegisterUserServiceServer(s, userhandler.NewServer(deps.UserRepo))
	sessionv1.RegisterSessionServiceServer(s, sessionhandler.NewServer(deps.SessionRepo, deps.AuditLogger, deps.Emitter))
	auditv1.RegisterAuditServiceServer(s, audithandler.NewServer(deps.AuditRepo))
	grpc_health_v1.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger))
}

// NewServer builds the gRPC server with the interceptor chain
// recovery → logging → telemetry → auth → audit and the otelgrpc stats handler, and registers all services.
func NewServer(logger zerolog.Logger, tokens *security.TokenProvider, deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryUnary(),
			interceptors.LoggingUnary(logger, quietMethods),
			interceptors.TelemetryUnary(deps.Emitter, quietMethods),
			interceptors.AuthUnary(tokens, PublicMethods),
			interceptors.AuditUnary(deps.AuditLogger, auditSkipMethods),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}
