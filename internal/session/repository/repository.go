package repository

import (
	"context"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/session/domain"
)

// Repository defines persistence for refresh sessions.
type Repository interface {
	// Create persists the session. RefreshTokenHash must be set; the raw token is never stored.
	Create(ctx context.Context, s *domain.Session) error
	// GetByRefreshToken returns the session whose stored hash matches token, joined with its owner, or nil if not found.
	GetByRefreshToken(ctx context.Context, token string) (*domain.WithOwner, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// DeleteForUser removes the session only when it belongs to userID. Reports whether a row was removed.
	DeleteForUser(ctx context.Context, userID, id string) (bool, error)
}
