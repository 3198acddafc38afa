package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/audit"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	sessiondomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/domain"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

const eventSource = "auth_service"

// AuthResult is the outcome of Register and Login: the sanitized principal and a fresh token pair.
type AuthResult struct {
	User      *userdomain.User
	Tokens    security.TokenPair
	SessionID string
}

// AccessResult is the outcome of RefreshAccessToken.
type AccessResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByRefreshToken(ctx context.Context, token string) (*sessiondomain.WithOwner, error)
	Delete(ctx context.Context, id string) error
}

// Transactor runs fn with repositories bound to one transaction. The transaction commits when fn
// returns nil and rolls back otherwise, including when fn panics.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, users UserRepo, sessions SessionRepo) error) error
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithNow overrides the clock used for session timestamps and expiry checks.
func WithNow(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithAuditLogger records register, login and refresh outcomes.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *AuthService) { s.audit = l }
}

// WithEventEmitter publishes auth events asynchronously.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *AuthService) { s.events = e }
}

// AuthService implements registration, password login and access-token refresh.
type AuthService struct {
	users    UserRepo
	sessions SessionRepo
	tx       Transactor
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	now      func() time.Time
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, sessions SessionRepo, tx Transactor, hasher *security.Hasher, tokens *security.TokenProvider, opts ...Option) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		tx:       tx,
		hasher:   hasher,
		tokens:   tokens,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the principal, its profile and a first session in one transaction and returns
// the sanitized principal with a token pair. A taken email yields ErrEmailAlreadyRegistered, whether
// found up front or raised by the unique constraint inside the transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if !in.valid {
		return nil, errNotValidated
	}
	existing, err := s.users.GetByEmail(ctx, in.email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash(in.password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        in.email,
		PasswordHash: hashed,
		Role:         in.role,
		Profile: userdomain.Profile{
			ID:        uuid.New().String(),
			FirstName: in.firstName,
			LastName:  in.lastName,
			Gender:    in.gender,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	pair, sess, err := s.newSession(user, in.device, now)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, users UserRepo, sessions SessionRepo) error {
		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, userdomain.ErrEmailTaken) {
				return ErrEmailAlreadyRegistered
			}
			return err
		}
		return sessions.Create(ctx, sess)
	})
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyRegistered) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	s.record(ctx, user.ID, sess.ID, audit.ActionRegister, telemetry.EventRegister, map[string]string{"role": string(user.Role)})
	return &AuthResult{User: user.Sanitized(), Tokens: pair, SessionID: sess.ID}, nil
}

// Login verifies the password and appends a new session. Unknown email, a principal without a
// password and a wrong password all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if !in.valid {
		return nil, errNotValidated
	}
	user, err := s.users.GetByEmail(ctx, in.email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.HasPassword() {
		s.record(ctx, "", "", audit.ActionLoginFailure, telemetry.EventLoginFailure, map[string]string{"reason": "unknown_principal"})
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, in.password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			s.record(ctx, user.ID, "", audit.ActionLoginFailure, telemetry.EventLoginFailure, map[string]string{"reason": "bad_password"})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	pair, sess, err := s.newSession(user, in.device, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.record(ctx, user.ID, sess.ID, audit.ActionLoginSuccess, telemetry.EventLoginSuccess, map[string]string{"device": sess.DeviceInfo})
	return &AuthResult{User: user.Sanitized(), Tokens: pair, SessionID: sess.ID}, nil
}

// RefreshAccessToken issues a new access token for a live session. The refresh token and session are
// left unchanged. A session found expired is deleted before ErrSessionExpired is returned.
func (s *AuthService) RefreshAccessToken(ctx context.Context, in RefreshInput) (*AccessResult, error) {
	if !in.valid {
		return nil, errNotValidated
	}
	claims, err := s.tokens.ValidateRefresh(in.token)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	sess, err := s.sessions.GetByRefreshToken(ctx, in.token)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil || sess.Owner == nil {
		return nil, ErrSessionNotFound
	}
	if sess.UserID != claims.UserID() || !security.RefreshTokenMatches(in.token, sess.RefreshTokenHash) {
		return nil, ErrInvalidRefreshToken
	}
	if sess.ExpiredAt(s.now()) {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		s.record(ctx, sess.UserID, sess.ID, audit.ActionSessionExpired, telemetry.EventSessionExpired, nil)
		return nil, ErrSessionExpired
	}
	token, exp, err := s.tokens.IssueAccess(sess.Owner.ID, string(sess.Owner.Role))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	s.record(ctx, sess.UserID, sess.ID, audit.ActionRefresh, telemetry.EventRefresh, nil)
	return &AccessResult{AccessToken: token, ExpiresAt: exp}, nil
}

// newSession issues a token pair for user and builds the session row that stores its refresh half.
func (s *AuthService) newSession(user *userdomain.User, device Device, now time.Time) (security.TokenPair, *sessiondomain.Session, error) {
	pair, err := s.tokens.IssuePair(user.ID, string(user.Role))
	if err != nil {
		return security.TokenPair{}, nil, fmt.Errorf("issue tokens: %w", err)
	}
	sess := &sessiondomain.Session{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		RefreshToken:     pair.RefreshToken,
		RefreshTokenHash: security.HashRefreshToken(pair.RefreshToken),
		DeviceInfo:       device.Info,
		PushToken:        device.PushToken,
		ExpiresAt:        now.Add(s.tokens.RefreshTTL()),
		CreatedAt:        now,
	}
	return pair, sess, nil
}

// record writes the audit row and emits the matching event. Both are best-effort.
func (s *AuthService) record(ctx context.Context, userID, sessionID, action, eventType string, meta map[string]string) {
	if s.audit != nil {
		var metadata string
		if len(meta) > 0 {
			b, _ := json.Marshal(meta)
			metadata = string(b)
		}
		s.audit.LogEvent(ctx, userID, action, audit.ResourceAuthentication, metadata)
	}
	if s.events != nil {
		var payload any
		if len(meta) > 0 {
			payload = meta
		}
		telemetry.EmitAsync(ctx, s.events, telemetry.NewEvent(eventType, eventSource, userID, sessionID, payload))
	}
}
