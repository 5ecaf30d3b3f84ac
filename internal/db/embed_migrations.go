package db

import "embed"

// MigrationFS embeds the SQL migrations of both stores: migrations/primary holds the capture,
// domain event, session and device configuration tables; migrations/legacy holds the legacy
// entity tables. Used by internal/db/migrate.
//
//go:embed migrations/primary/*.sql migrations/legacy/*.sql
var MigrationFS embed.FS
