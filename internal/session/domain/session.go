package domain

import (
	"strings"
	"time"

	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

// UnknownDevice is recorded when the client does not describe its device.
const UnknownDevice = "Unknown Device"

// Session is a server-side refresh session. A session is active until ExpiresAt and is
// removed when it is found expired on refresh or explicitly revoked.
type Session struct {
	ID     string
	UserID string
	// RefreshToken is only populated at issue time and is never read back from storage.
	RefreshToken string
	// RefreshTokenHash is the SHA-256 of RefreshToken; unique and used as the lookup key.
	RefreshTokenHash string
	DeviceInfo       string
	PushToken        *string
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

// ExpiredAt reports whether the session is expired at t.
func (s *Session) ExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// WithOwner is a session joined with the principal that owns it.
type WithOwner struct {
	Session
	Owner *userdomain.User
}

// DeviceOrDefault returns d trimmed, or UnknownDevice when empty.
func DeviceOrDefault(d string) string {
	d = strings.TrimSpace(d)
	if d == "" {
		return UnknownDevice
	}
	return d
}
