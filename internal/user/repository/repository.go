package repository

import (
	"context"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

// Repository defines persistence for principals and their profiles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create inserts the user and its profile. Returns domain.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, u *domain.User) error
}
