package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	emailDup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil", nil, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"unique any constraint", emailDup, "", true},
		{"unique matching constraint", emailDup, "users_email_key", true},
		{"unique other constraint", emailDup, "sessions_refresh_token_hash_key", false},
		{"wrapped", fmt.Errorf("create user: %w", emailDup), "users_email_key", true},
		{"foreign key", &pgconn.PgError{Code: "23503"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsUniqueViolation = %v, want %v", got, tt.want)
			}
		})
	}
}
