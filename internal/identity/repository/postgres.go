// Package repository binds the auth service's transactional unit of work to Postgres.
package repository

import (
	"context"
	"database/sql"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/identity/service"
	sessionrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/repository"
	userrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/repository"
)

// PostgresTransactor implements service.Transactor over a *sql.DB.
type PostgresTransactor struct {
	db *sql.DB
}

// NewPostgresTransactor returns a transactor that opens a transaction on conn for every unit of work.
func NewPostgresTransactor(conn *sql.DB) *PostgresTransactor {
	return &PostgresTransactor{db: conn}
}

// WithinTx runs fn with user and session repositories bound to one transaction.
func (t *PostgresTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, users service.UserRepo, sessions service.SessionRepo) error) error {
	return db.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		return fn(ctx, userrepo.NewPostgresRepository(tx), sessionrepo.NewPostgresRepository(tx))
	})
}

var _ service.Transactor = (*PostgresTransactor)(nil)
