package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

const emailUniqueConstraint = "users_email_key"

const selectUser = `
SELECT u.id, u.email, u.password_hash, u.role, u.created_at, u.updated_at,
       p.id, p.first_name, p.last_name, p.gender
FROM users u
JOIN profiles p ON p.user_id = u.id`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a user repository over conn, which may be a *sql.DB or a *sql.Tx.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.id = $1`, id)
}

// GetByEmail returns the user for the normalized email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// Create inserts the user row and its profile row. Run it inside a transaction so both land or neither does.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, nullString(u.PasswordHash), string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, emailUniqueConstraint) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	var gender sql.NullString
	if u.Profile.Gender != nil {
		gender = sql.NullString{String: string(*u.Profile.Gender), Valid: true}
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, first_name, last_name, gender, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.Profile.ID, u.ID, u.Profile.FirstName, u.Profile.LastName, gender, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u      domain.User
		hash   sql.NullString
		role   string
		gender sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &hash, &role, &u.CreatedAt, &u.UpdatedAt,
		&u.Profile.ID, &u.Profile.FirstName, &u.Profile.LastName, &gender)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	u.Role = domain.Role(role)
	if gender.Valid {
		g := domain.Gender(gender.String)
		u.Profile.Gender = &g
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
