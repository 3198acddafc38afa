package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/audit"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

type fixture struct {
	store  *memStore
	tokens *security.TokenProvider
	audit  *recordingAudit
	clock  *time.Time
	svc    *AuthService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	now := time.Now()
	f := &fixture{store: newMemStore(), tokens: tokens, audit: &recordingAudit{}, clock: &now}
	opts = append([]Option{
		WithNow(func() time.Time { return *f.clock }),
		WithAuditLogger(f.audit),
	}, opts...)
	f.svc = NewAuthService(memUserRepo{f.store}, memSessionRepo{f.store}, memTransactor{f.store},
		security.NewHasher(4), tokens, opts...)
	return f
}

func registerInput(t *testing.T, email, password string) RegisterInput {
	t.Helper()
	in, err := NewRegisterInput(RegisterRequest{Email: email, Password: password, FirstName: "Alice", LastName: "Smith"})
	require.NoError(t, err)
	return in
}

func loginInput(t *testing.T, email, password string) LoginInput {
	t.Helper()
	in, err := NewLoginInput(LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	return in
}

func refreshInput(t *testing.T, token string) RefreshInput {
	t.Helper()
	in, err := NewRefreshInput(token)
	require.NoError(t, err)
	return in
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Register(context.Background(), registerInput(t, "Alice@Example.com", "secret1"))
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Empty(t, res.User.PasswordHash, "returned principal must be sanitized")
	assert.Equal(t, userdomain.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.SessionID)

	claims, err := f.tokens.ValidateAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID())
	assert.Equal(t, "USER", claims.Role)
	_, err = f.tokens.ValidateRefresh(res.Tokens.RefreshToken)
	require.NoError(t, err)

	stored := f.store.users["alice@example.com"]
	require.NotNil(t, stored)
	assert.NoError(t, security.NewHasher(4).Compare(stored.PasswordHash, "secret1"))
	assert.Equal(t, 1, f.store.sessionCount(res.User.ID))
	sess := f.store.sessions[res.SessionID]
	require.NotNil(t, sess)
	assert.Equal(t, security.HashRefreshToken(res.Tokens.RefreshToken), sess.RefreshTokenHash)
	assert.Equal(t, "Unknown Device", sess.DeviceInfo)
	assert.WithinDuration(t, f.clock.Add(f.tokens.RefreshTTL()), sess.ExpiresAt, time.Second)
	assert.Equal(t, []string{audit.ActionRegister}, f.audit.actions())
}

func TestRegister_DriverWithDevice(t *testing.T) {
	f := newFixture(t)
	in, err := NewRegisterInput(RegisterRequest{
		Email: "driver@example.com", Password: "secret1", FirstName: "Dan", LastName: "Rider",
		Role: "driver", Gender: "male", DeviceInfo: "Pixel 8", PushToken: "fcm-1",
	})
	require.NoError(t, err)
	res, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, userdomain.RoleDriver, res.User.Role)
	require.NotNil(t, res.User.Profile.Gender)
	assert.Equal(t, userdomain.GenderMale, *res.User.Profile.Gender)
	claims, err := f.tokens.ValidateAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "DRIVER", claims.Role)
	sess := f.store.sessions[res.SessionID]
	assert.Equal(t, "Pixel 8", sess.DeviceInfo)
	require.NotNil(t, sess.PushToken)
	assert.Equal(t, "fcm-1", *sess.PushToken)
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, registerInput(t, "ALICE@example.com", "another1"))
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
	assert.Len(t, f.store.users, 1)
	assert.Len(t, f.store.sessions, 1)
}

func TestRegister_UniqueViolationInsideTxIsConflict(t *testing.T) {
	f := newFixture(t)
	f.store.raceEmail = true
	_, err := f.svc.Register(context.Background(), registerInput(t, "race@example.com", "secret1"))
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
	assert.Empty(t, f.store.users)
	assert.Empty(t, f.store.sessions)
}

func TestRegister_AtomicWhenSessionInsertFails(t *testing.T) {
	f := newFixture(t)
	f.store.failSessionCreate = errors.New("disk full")
	_, err := f.svc.Register(context.Background(), registerInput(t, "atomic@example.com", "secret1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailAlreadyRegistered)
	assert.Empty(t, f.store.users, "principal must not exist without its session")
	assert.Empty(t, f.store.sessions)
	assert.Empty(t, f.audit.actions())
}

func TestRegister_RejectsUnvalidatedInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLogin_Indistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, loginInput(t, "alice@example.com", "wrongpass"))
	_, unknownEmail := f.svc.Login(ctx, loginInput(t, "nobody@example.com", "secret1"))
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_EmptyOrOverlongPasswordIsInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)

	for _, pw := range []string{"", strings.Repeat("x", 80)} {
		_, err := f.svc.Login(ctx, loginInput(t, "alice@example.com", pw))
		assert.ErrorIs(t, err, ErrInvalidCredentials, "password of %d bytes", len(pw))
	}
}

func TestLogin_PrincipalWithoutPassword(t *testing.T) {
	f := newFixture(t)
	f.store.users["federated@example.com"] = &userdomain.User{ID: "u-fed", Email: "federated@example.com", Role: userdomain.RoleUser}
	_, err := f.svc.Login(context.Background(), loginInput(t, "federated@example.com", "anything"))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_AppendsSessionEveryTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)
	userID := reg.User.ID

	seen := map[string]bool{reg.Tokens.RefreshToken: true}
	for i := 2; i <= 4; i++ {
		in, err := NewLoginInput(LoginRequest{Email: "alice@example.com", Password: "secret1", DeviceInfo: "same-device"})
		require.NoError(t, err)
		res, err := f.svc.Login(ctx, in)
		require.NoError(t, err)
		assert.Empty(t, res.User.PasswordHash)
		assert.Equal(t, i, f.store.sessionCount(userID))
		assert.False(t, seen[res.Tokens.RefreshToken], "refresh tokens must be unique")
		seen[res.Tokens.RefreshToken] = true
	}
}

func TestAliceScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)
	require.NotEmpty(t, reg.Tokens.AccessToken)
	require.NotEmpty(t, reg.Tokens.RefreshToken)

	_, err = f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.ErrorIs(t, err, ErrEmailAlreadyRegistered)

	_, err = f.svc.Login(ctx, loginInput(t, "alice@example.com", "wrongpass"))
	require.ErrorIs(t, err, ErrInvalidCredentials)

	before := f.store.sessionCount(reg.User.ID)
	login, err := f.svc.Login(ctx, loginInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)
	assert.NotEqual(t, reg.Tokens.RefreshToken, login.Tokens.RefreshToken)
	assert.Equal(t, before+1, f.store.sessionCount(reg.User.ID))

	assert.Equal(t, []string{audit.ActionRegister, audit.ActionLoginFailure, audit.ActionLoginSuccess}, f.audit.actions())
}

func TestRefresh_IssuesAccessWithCurrentRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)

	f.store.users["alice@example.com"].Role = userdomain.RoleAdmin

	res, err := f.svc.RefreshAccessToken(ctx, refreshInput(t, reg.Tokens.RefreshToken))
	require.NoError(t, err)
	claims, err := f.tokens.ValidateAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID())
	assert.Equal(t, "ADMIN", claims.Role)
	assert.False(t, res.ExpiresAt.IsZero())
}

func TestRefresh_TwiceYieldsDistinctTokensAndKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)

	first, err := f.svc.RefreshAccessToken(ctx, refreshInput(t, reg.Tokens.RefreshToken))
	require.NoError(t, err)
	second, err := f.svc.RefreshAccessToken(ctx, refreshInput(t, reg.Tokens.RefreshToken))
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, 1, f.store.sessionCount(reg.User.ID))
}

func TestRefresh_InvalidToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"access token": reg.Tokens.AccessToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.RefreshAccessToken(ctx, refreshInput(t, token))
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		})
	}
}

func TestRefresh_SessionNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)
	require.NoError(t, memSessionRepo{f.store}.Delete(ctx, reg.SessionID))

	_, err = f.svc.RefreshAccessToken(ctx, refreshInput(t, reg.Tokens.RefreshToken))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	orphan, _, err := f.tokens.IssueRefresh("someone-else")
	require.NoError(t, err)
	_, err = f.svc.RefreshAccessToken(ctx, refreshInput(t, orphan))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefresh_ExpiredSessionIsDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)

	*f.clock = f.clock.Add(f.tokens.RefreshTTL() + time.Minute)
	_, err = f.svc.RefreshAccessToken(ctx, refreshInput(t, reg.Tokens.RefreshToken))
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, f.store.sessionCount(reg.User.ID))

	_, err = f.svc.RefreshAccessToken(ctx, refreshInput(t, reg.Tokens.RefreshToken))
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Contains(t, f.audit.actions(), audit.ActionSessionExpired)
}

func TestService_EmitsEvents(t *testing.T) {
	events := make(chan *telemetry.Event, 4)
	f := newFixture(t, WithEventEmitter(chanEmitter{events}))
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, registerInput(t, "alice@example.com", "secret1"))
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, telemetry.EventRegister, ev.Type)
		assert.Equal(t, reg.User.ID, ev.UserID)
		assert.Equal(t, reg.SessionID, ev.SessionID)
		assert.JSONEq(t, `{"role":"USER"}`, string(ev.Metadata))
	case <-time.After(2 * time.Second):
		t.Fatal("register event not emitted")
	}
}
