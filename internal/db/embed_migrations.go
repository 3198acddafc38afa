package db

import "embed"

// MigrationFS embeds the SQL migrations applied by internal/db/migrate (cmd/migrate, and cmd/server when MIGRATE_ON_START is set).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
