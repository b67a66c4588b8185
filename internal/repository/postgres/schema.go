// internal/repository/postgres/schema.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sync_jobs (
		id           TEXT PRIMARY KEY,
		domain       TEXT NOT NULL,
		trigger      TEXT NOT NULL,
		status       TEXT NOT NULL,
		message      TEXT NOT NULL DEFAULT '',
		started_at   TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_jobs_started_at ON sync_jobs (started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS scheduler_config (
		name       TEXT PRIMARY KEY,
		enabled    BOOLEAN NOT NULL DEFAULT FALSE,
		cron_expr  TEXT NOT NULL DEFAULT '',
		branch_id  BIGINT NOT NULL DEFAULT 0,
		from_date  TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the sync tables when they do not exist yet. All
// statements run in one transaction so a partially created schema never
// survives a failure.
func EnsureSchema(ctx context.Context, db *DB) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
		return nil
	})
}
