package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/auth/v1"
	userv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/user/v1"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/platform/rbac"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

// UserGetter is the read side of the user repository.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Server implements UserService.
type Server struct {
	userv1.UnimplementedUserServiceServer
	users UserGetter
}

// NewServer returns a new User gRPC server. users may be nil; then all RPCs return Unimplemented.
func NewServer(users UserGetter) *Server {
	return &Server{users: users}
}

// GetUser returns the caller's principal, or req.UserID's when the caller is ADMIN. The password hash never leaves.
func (s *Server) GetUser(ctx context.Context, req *userv1.GetUserRequest) (*userv1.GetUserResponse, error) {
	if s.users == nil {
		return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
	}
	userID, err := rbac.ResolveSubject(ctx, strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("subject", userID).Msg("get user")
		return nil, status.Error(codes.Internal, "failed to look up user")
	}
	if u == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return &userv1.GetUserResponse{User: domainUserToProto(u.Sanitized())}, nil
}

func domainUserToProto(u *domain.User) *authv1.User {
	out := &authv1.User{
		ID:    u.ID,
		Email: u.Email,
		Role:  string(u.Role),
		Profile: authv1.Profile{
			ID:        u.Profile.ID,
			FirstName: u.Profile.FirstName,
			LastName:  u.Profile.LastName,
		},
		CreatedAt: u.CreatedAt,
	}
	if u.Profile.Gender != nil {
		out.Profile.Gender = string(*u.Profile.Gender)
	}
	return out
}
