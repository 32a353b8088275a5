package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; migrations[i] brings the schema to
// version i+1. Statements must be idempotent.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS reminders (
			id           TEXT PRIMARY KEY,
			owner        TEXT    NOT NULL,
			message      TEXT    NOT NULL,
			kind         TEXT    NOT NULL,
			interval_ms  INTEGER NOT NULL DEFAULT 0,
			scheduled_at TEXT    NOT NULL DEFAULT '',
			next_trigger TEXT    NOT NULL,
			active       INTEGER NOT NULL DEFAULT 1,
			triggered_at TEXT    NOT NULL DEFAULT '',
			created_at   TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_owner ON reminders(owner, active, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_next ON reminders(active, next_trigger)`,
		`CREATE TABLE IF NOT EXISTS memories (
			id         TEXT PRIMARY KEY,
			owner      TEXT NOT NULL,
			content    TEXT NOT NULL,
			embedding  TEXT NOT NULL DEFAULT '',
			metadata   TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner, created_at)`,
	},
}

// schemaVersion is the version the current binary migrates to.
var schemaVersion = len(migrations)

// migrate brings the database schema up to schemaVersion.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current > schemaVersion {
		return fmt.Errorf("sqlite: database schema version %d is newer than supported %d", current, schemaVersion)
	}

	for v := current; v < schemaVersion; v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlite: begin migration %d: %w", v+1, err)
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("sqlite: migrate to %d: %w\nstatement: %s", v+1, err, stmt)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", v+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: record schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlite: commit migration %d: %w", v+1, err)
		}
	}
	return nil
}
