package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/audit/v1"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/audit/domain"
	auditrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/audit/repository"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/platform/rbac"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// Server implements AuditService: a principal reads its own audit trail; ADMIN may read anyone's.
type Server struct {
	auditv1.UnimplementedAuditServiceServer
	repo auditrepo.Repository
}

// NewServer returns a new Audit gRPC server. If repo is nil, all RPCs return Unimplemented.
func NewServer(repo auditrepo.Repository) *Server {
	return &Server{repo: repo}
}

// ListAuditLogs returns the newest audit rows for the subject, at most maxLimit.
func (s *Server) ListAuditLogs(ctx context.Context, req *auditv1.ListAuditLogsRequest) (*auditv1.ListAuditLogsResponse, error) {
	if s.repo == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	userID, err := rbac.ResolveSubject(ctx, strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("subject", userID).Msg("list audit logs")
		return nil, status.Error(codes.Internal, "failed to list audit logs")
	}
	logs := make([]*auditv1.AuditLog, len(list))
	for i := range list {
		logs[i] = auditLogToProto(list[i])
	}
	return &auditv1.ListAuditLogsResponse{Logs: logs}, nil
}

func auditLogToProto(a *domain.AuditLog) *auditv1.AuditLog {
	return &auditv1.AuditLog{
		ID:        a.ID,
		UserID:    a.UserID,
		Action:    a.Action,
		Resource:  a.Resource,
		IP:        a.IP,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}
