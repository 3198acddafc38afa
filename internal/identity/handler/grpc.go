package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/auth/v1"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/identity/service"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

// Authenticator is the slice of the auth service the handler calls.
type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	RefreshAccessToken(ctx context.Context, in service.RefreshInput) (*service.AccessResult, error)
}

// AuthServer implements AuthService for registration, login and access-token refresh.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	auth Authenticator
}

// NewAuthServer returns a new Auth gRPC server. If auth is nil, all RPCs return Unimplemented.
func NewAuthServer(auth Authenticator) *AuthServer {
	return &AuthServer{auth: auth}
}

func (s *AuthServer) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Register not implemented")
	}
	in, err := service.NewRegisterInput(service.RegisterRequest{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		Gender:     req.Gender,
		DeviceInfo: req.DeviceInfo,
		PushToken:  req.PushToken,
	})
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	res, err := s.auth.Register(ctx, in)
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return authResultToProto(res), nil
}

func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	in, err := service.NewLoginInput(service.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		DeviceInfo: req.DeviceInfo,
		PushToken:  req.PushToken,
	})
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	res, err := s.auth.Login(ctx, in)
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return authResultToProto(res), nil
}

func (s *AuthServer) RefreshToken(ctx context.Context, req *authv1.RefreshTokenRequest) (*authv1.RefreshTokenResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
	}
	in, err := service.NewRefreshInput(req.RefreshToken)
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	res, err := s.auth.RefreshAccessToken(ctx, in)
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return &authv1.RefreshTokenResponse{AccessToken: res.AccessToken, ExpiresAt: res.ExpiresAt}, nil
}

// authErrToStatus maps service errors to gRPC status. Unknown errors are logged and hidden behind Internal.
func authErrToStatus(ctx context.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationStatus(verr)
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return status.Error(codes.AlreadyExists, "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "Invalid email or password")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return status.Error(codes.Unauthenticated, "Invalid Refresh Token")
	case errors.Is(err, service.ErrSessionNotFound):
		return status.Error(codes.Unauthenticated, "Session not found or revoked")
	case errors.Is(err, service.ErrSessionExpired):
		return status.Error(codes.Unauthenticated, "Session expired, please login again")
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("auth request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func validationStatus(verr *service.ValidationError) error {
	st := status.New(codes.InvalidArgument, verr.Error())
	br := &errdetails.BadRequest{}
	for _, v := range verr.Violations {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       v.Field,
			Description: v.Description,
		})
	}
	if withDetails, err := st.WithDetails(br); err == nil {
		return withDetails.Err()
	}
	return st.Err()
}

func authResultToProto(res *service.AuthResult) *authv1.AuthResponse {
	return &authv1.AuthResponse{
		User:             userToProto(res.User),
		AccessToken:      res.Tokens.AccessToken,
		RefreshToken:     res.Tokens.RefreshToken,
		AccessExpiresAt:  res.Tokens.AccessExpiresAt,
		RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
		SessionID:        res.SessionID,
	}
}

func userToProto(u *userdomain.User) *authv1.User {
	if u == nil {
		return nil
	}
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
