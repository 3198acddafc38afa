package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/session/domain"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

const sessionColumns = `s.id, s.user_id, s.refresh_token_hash, s.device_info, s.push_token, s.expires_at, s.created_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository over conn, which may be a *sql.DB or a *sql.Tx.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the session to the database. The session must have ID and RefreshTokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == "" || s.UserID == "" {
		return errors.New("session id and user id are required")
	}
	if s.RefreshTokenHash == "" {
		return errors.New("session refresh token hash is required")
	}
	var push sql.NullString
	if s.PushToken != nil {
		push = sql.NullString{String: *s.PushToken, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token_hash, device_info, push_token, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.RefreshTokenHash, domain.DeviceOrDefault(s.DeviceInfo), push, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByRefreshToken hashes token and returns the matching session with its owner, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.WithOwner, error) {
	if token == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+`,
       u.email, u.password_hash, u.role, u.created_at, u.updated_at,
       p.id, p.first_name, p.last_name, p.gender
FROM sessions s
JOIN users u ON u.id = s.user_id
JOIN profiles p ON p.user_id = u.id
WHERE s.refresh_token_hash = $1`, security.HashRefreshToken(token))

	var (
		out    domain.WithOwner
		owner  userdomain.User
		push   sql.NullString
		hash   sql.NullString
		role   string
		gender sql.NullString
	)
	err := row.Scan(&out.ID, &out.UserID, &out.RefreshTokenHash, &out.DeviceInfo, &push, &out.ExpiresAt, &out.CreatedAt,
		&owner.Email, &hash, &role, &owner.CreatedAt, &owner.UpdatedAt,
		&owner.Profile.ID, &owner.Profile.FirstName, &owner.Profile.LastName, &gender)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if push.Valid {
		out.PushToken = &push.String
	}
	owner.ID = out.UserID
	owner.PasswordHash = hash.String
	owner.Role = userdomain.Role(role)
	if gender.Valid {
		g := userdomain.Gender(gender.String)
		owner.Profile.Gender = &g
	}
	out.Owner = &owner
	return &out, nil
}

// Delete removes the session with the given id. Deleting a missing session is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListByUser returns the user's sessions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s WHERE s.user_id = $1 ORDER BY s.created_at DESC, s.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		var (
			s    domain.Session
			push sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.DeviceInfo, &push, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		if push.Valid {
			s.PushToken = &push.String
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// DeleteForUser removes session id only if it belongs to userID.
func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
