package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sessionv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/session/v1"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/audit"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/platform/rbac"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/session/domain"
	sessionrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/repository"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry"
)

const eventSource = "session_service"

// Server implements SessionService: a principal lists and revokes its own refresh sessions.
type Server struct {
	sessionv1.UnimplementedSessionServiceServer
	sessionRepo sessionrepo.Repository
	auditLogger audit.AuditLogger
	emitter     telemetry.EventEmitter
}

// NewServer returns a new Session gRPC server. If sessionRepo is nil, all RPCs return Unimplemented.
// auditLogger and emitter may be nil.
func NewServer(sessionRepo sessionrepo.Repository, auditLogger audit.AuditLogger, emitter telemetry.EventEmitter) *Server {
	return &Server{
		sessionRepo: sessionRepo,
		auditLogger: auditLogger,
		emitter:     emitter,
	}
}

// ListSessions returns the sessions of the caller, or of req.UserID when the caller is ADMIN. Newest first.
func (s *Server) ListSessions(ctx context.Context, req *sessionv1.ListSessionsRequest) (*sessionv1.ListSessionsResponse, error) {
	if s.sessionRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
	}
	userID, err := rbac.ResolveSubject(ctx, strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, err
	}
	list, err := s.sessionRepo.ListByUser(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("subject", userID).Msg("list sessions")
		return nil, status.Error(codes.Internal, "failed to list sessions")
	}
	sessions := make([]*sessionv1.Session, len(list))
	for i := range list {
		sessions[i] = domainSessionToProto(list[i])
	}
	return &sessionv1.ListSessionsResponse{Sessions: sessions}, nil
}

// RevokeSession deletes one of the caller's sessions. Its refresh token stops working immediately.
// A session that does not exist or belongs to someone else is reported as NotFound.
func (s *Server) RevokeSession(ctx context.Context, req *sessionv1.RevokeSessionRequest) (*sessionv1.RevokeSessionResponse, error) {
	if s.sessionRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method RevokeSession not implemented")
	}
	userID, _, err := rbac.Caller(ctx)
	if err != nil {
		return nil, err
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id required")
	}
	deleted, err := s.sessionRepo.DeleteForUser(ctx, userID, sessionID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("revoke session")
		return nil, status.Error(codes.Internal, "failed to revoke session")
	}
	if !deleted {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	if s.auditLogger != nil {
		s.auditLogger.LogEvent(ctx, userID, audit.ActionSessionRevoked, audit.ResourceSession, sessionID)
	}
	if s.emitter != nil {
		telemetry.EmitAsync(ctx, s.emitter, telemetry.NewEvent(telemetry.EventSessionRevoked, eventSource, userID, sessionID, nil))
	}
	return &sessionv1.RevokeSessionResponse{}, nil
}

func domainSessionToProto(s *domain.Session) *sessionv1.Session {
	if s == nil {
		return nil
	}
	out := &sessionv1.Session{
		ID:         s.ID,
		UserID:     s.UserID,
		DeviceInfo: s.DeviceInfo,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
	}
	if s.PushToken != nil {
		out.PushToken = *s.PushToken
	}
	return out
}
