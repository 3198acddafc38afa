// Package dbtest provides a migrated Postgres connection for repository integration tests.
// Tests are skipped unless DATABASE_URL points at a disposable database.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db/migrate"
)

// Open returns a connection to DATABASE_URL with all migrations applied and every table emptied.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if _, err := conn.ExecContext(context.Background(), `TRUNCATE audit_logs, sessions, profiles, users`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return conn
}
