package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or fails signature, issuer or audience checks.
	ErrInvalidToken = errors.New("invalid token")
)

// refreshAudienceSuffix is appended to the configured audience for refresh tokens.
const refreshAudienceSuffix = ":refresh"

// Claims holds JWT claims for both token classes. Role is empty for refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// TokenConfig is the explicit signing configuration for a TokenProvider.
type TokenConfig struct {
	// AccessSecret and RefreshSecret are HMAC secrets, or PEM private keys (inline or file path) for RS256/ES256.
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenPair is the result of a login or registration. It is never persisted as-is.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Signer is a single signing context: one key, one audience, one lifetime.
type Signer struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	issuer    string
	audience  string
	ttl       time.Duration
	now       func() time.Time
}

// NewSigner returns a Signer for the given secret material. A value that looks like PEM
// (or a path to a .pem file) is parsed as an RSA or ECDSA private key; anything else is an HMAC secret.
func NewSigner(material, issuer, audience string, ttl time.Duration) (*Signer, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, ErrInvalidKey
	}
	s := &Signer{issuer: issuer, audience: audience, ttl: ttl, now: time.Now}
	if !isKeyMaterial(material) {
		s.method = jwt.SigningMethodHS256
		s.signKey = []byte(material)
		s.verifyKey = []byte(material)
		return s, nil
	}
	priv, err := ParsePrivateKey(material)
	if err != nil {
		return nil, err
	}
	method, err := SigningMethodFor(priv.Public())
	if err != nil {
		return nil, err
	}
	s.method = method
	s.signKey = priv
	s.verifyKey = priv.Public()
	return s, nil
}

func isKeyMaterial(s string) bool {
	return strings.HasPrefix(s, "-----BEGIN") || strings.HasSuffix(s, ".pem")
}

// TTL returns the lifetime of tokens issued by this signer.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue signs a token for subject with an optional role. Every token carries a fresh random jti.
func (s *Signer) Issue(subject, role string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now().UTC()
	expiresAt = now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	token, err = jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses and validates the token (algorithm, signature, exp, iss, aud). Every failure is ErrInvalidToken.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc,
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != s.issuer || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == s.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) keyFunc(token *jwt.Token) (interface{}, error) {
	switch s.method.(type) {
	case *jwt.SigningMethodHMAC:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
			return s.verifyKey, nil
		}
	case *jwt.SigningMethodRSA:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return s.verifyKey, nil
		}
	case *jwt.SigningMethodECDSA:
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return s.verifyKey, nil
		}
	}
	return nil, ErrInvalidToken
}

// TokenProvider issues and validates access and refresh tokens using two independent signing contexts.
type TokenProvider struct {
	access  *Signer
	refresh *Signer
}

// ProviderOption configures a TokenProvider.
type ProviderOption func(*TokenProvider)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *TokenProvider) {
		p.access.now = now
		p.refresh.now = now
	}
}

// NewTokenProvider builds the access and refresh signers from cfg.
func NewTokenProvider(cfg TokenConfig, opts ...ProviderOption) (*TokenProvider, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	access, err := NewSigner(cfg.AccessSecret, cfg.Issuer, cfg.Audience, cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := NewSigner(cfg.RefreshSecret, cfg.Issuer, cfg.Audience+refreshAudienceSuffix, cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	p := &TokenProvider{access: access, refresh: refresh}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.access.ttl }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refresh.ttl }

// IssueAccess issues a short-lived access JWT carrying the user id and role.
func (p *TokenProvider) IssueAccess(userID, role string) (string, time.Time, error) {
	return p.access.Issue(userID, role)
}

// IssueRefresh issues a long-lived refresh JWT carrying the user id only.
func (p *TokenProvider) IssueRefresh(userID string) (string, time.Time, error) {
	return p.refresh.Issue(userID, "")
}

// IssuePair issues an access and a refresh token for the user.
func (p *TokenProvider) IssuePair(userID, role string) (TokenPair, error) {
	access, accessExp, err := p.IssueAccess(userID, role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := p.IssueRefresh(userID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ValidateAccess verifies an access token and returns its claims.
func (p *TokenProvider) ValidateAccess(token string) (*Claims, error) {
	return p.access.Verify(token)
}

// ValidateRefresh verifies a refresh token and returns its claims.
func (p *TokenProvider) ValidateRefresh(token string) (*Claims, error) {
	return p.refresh.Verify(token)
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
