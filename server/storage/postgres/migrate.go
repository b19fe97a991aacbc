package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; the index + 1 is the schema version.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
    id              TEXT PRIMARY KEY,
    title           TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    start_time      TIMESTAMPTZ NOT NULL,
    end_time        TIMESTAMPTZ NOT NULL,
    timezone        TEXT NOT NULL,
    recurrence_rule TEXT NOT NULL DEFAULT '',
    series_id       TEXT,
    participants    TEXT[] NOT NULL DEFAULT '{}',
    exceptions      JSONB NOT NULL DEFAULT '[]',
    created_by      TEXT NOT NULL,
    version         BIGINT NOT NULL DEFAULT 1,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    CHECK (end_time > start_time)
)`,
	`CREATE INDEX IF NOT EXISTS events_created_by_idx ON events (created_by)`,
	`CREATE INDEX IF NOT EXISTS events_series_id_idx ON events (series_id) WHERE series_id IS NOT NULL`,
}

// SchemaVersion is the version Migrate brings the database to.
func SchemaVersion() int {
	return len(migrations)
}

// Migrate applies pending migrations inside one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	// Serialize concurrent migrators.
	if _, err := tx.ExecContext(ctx, `LOCK TABLE schema_migrations IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock schema_migrations: %w", err)
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, i+1); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}
