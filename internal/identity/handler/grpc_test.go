package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/auth/v1"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/identity/service"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

// stubAuth implements Authenticator for tests.
type stubAuth struct {
	result    *service.AuthResult
	access    *service.AccessResult
	err       error
	lastEmail string
	calls     int
}

func (s *stubAuth) Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	s.calls++
	s.lastEmail = in.Email()
	return s.result, s.err
}

func (s *stubAuth) Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubAuth) RefreshAccessToken(ctx context.Context, in service.RefreshInput) (*service.AccessResult, error) {
	s.calls++
	return s.access, s.err
}

func sampleResult() *service.AuthResult {
	g := userdomain.GenderFemale
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &service.AuthResult{
		User: &userdomain.User{
			ID:        "user-1",
			Email:     "alice@example.com",
			Role:      userdomain.RoleUser,
			Profile:   userdomain.Profile{ID: "profile-1", FirstName: "Alice", LastName: "Smith", Gender: &g},
			CreatedAt: now,
		},
		Tokens: security.TokenPair{
			AccessToken:      "access",
			RefreshToken:     "refresh",
			AccessExpiresAt:  now.Add(15 * time.Minute),
			RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		},
		SessionID: "session-1",
	}
}

func validRegister() *authv1.RegisterRequest {
	return &authv1.RegisterRequest{Email: " Alice@Example.com ", Password: "secret1", FirstName: "Alice", LastName: "Smith"}
}

func TestNilAuthService(t *testing.T) {
	srv := NewAuthServer(nil)
	ctx := context.Background()

	_, err := srv.Register(ctx, validRegister())
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = srv.Login(ctx, &authv1.LoginRequest{Email: "a@b.co", Password: "secret1"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = srv.RefreshToken(ctx, &authv1.RefreshTokenRequest{RefreshToken: "x"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestRegister_Success(t *testing.T) {
	auth := &stubAuth{result: sampleResult()}
	srv := NewAuthServer(auth)

	resp, err := srv.Register(context.Background(), validRegister())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", auth.lastEmail)
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "refresh", resp.RefreshToken)
	assert.Equal(t, "session-1", resp.SessionID)
	require.NotNil(t, resp.User)
	assert.Equal(t, "USER", resp.User.Role)
	assert.Equal(t, "FEMALE", resp.User.Profile.Gender)
	assert.Equal(t, "Alice", resp.User.Profile.FirstName)
}

func TestRegister_ValidationErrorCarriesFieldViolations(t *testing.T) {
	auth := &stubAuth{result: sampleResult()}
	srv := NewAuthServer(auth)

	_, err := srv.Register(context.Background(), &authv1.RegisterRequest{Email: "not-an-email", Password: "123", FirstName: "A", LastName: "Smith", Role: "ADMIN"})
	require.Error(t, err)
	assert.Zero(t, auth.calls, "service must not be called with invalid input")

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	var fields []string
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		require.True(t, ok, "unexpected detail %T", d)
		for _, v := range br.GetFieldViolations() {
			fields = append(fields, v.GetField())
		}
	}
	assert.ElementsMatch(t, []string{"email", "password", "first_name", "role"}, fields)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    codes.Code
		message string
	}{
		{"conflict", service.ErrEmailAlreadyRegistered, codes.AlreadyExists, "Email already registered"},
		{"credentials", service.ErrInvalidCredentials, codes.Unauthenticated, "Invalid email or password"},
		{"refresh token", service.ErrInvalidRefreshToken, codes.Unauthenticated, "Invalid Refresh Token"},
		{"session not found", service.ErrSessionNotFound, codes.Unauthenticated, "Session not found or revoked"},
		{"session expired", service.ErrSessionExpired, codes.Unauthenticated, "Session expired, please login again"},
		{"internal", errors.New("pq: connection reset"), codes.Internal, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewAuthServer(&stubAuth{err: tt.err})
			_, err := srv.Login(context.Background(), &authv1.LoginRequest{Email: "alice@example.com", Password: "secret1"})
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.message, st.Message())
		})
	}
}

func TestLogin_Success(t *testing.T) {
	srv := NewAuthServer(&stubAuth{result: sampleResult()})
	resp, err := srv.Login(context.Background(), &authv1.LoginRequest{Email: "alice@example.com", Password: "secret1", DeviceInfo: "iPhone"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.False(t, resp.RefreshExpiresAt.IsZero())
}

func TestRefreshToken(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute)
	srv := NewAuthServer(&stubAuth{access: &service.AccessResult{AccessToken: "new-access", ExpiresAt: exp}})

	resp, err := srv.RefreshToken(context.Background(), &authv1.RefreshTokenRequest{RefreshToken: "refresh"})
	require.NoError(t, err)
	assert.Equal(t, "new-access", resp.AccessToken)
	assert.True(t, exp.Equal(resp.ExpiresAt))

	_, err = srv.RefreshToken(context.Background(), &authv1.RefreshTokenRequest{RefreshToken: "  "})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
