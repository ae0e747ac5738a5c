package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version    string
	statements []string
}

// migrations are applied in order and recorded in schema_migrations.
var migrations = []migration{
	{
		version: "001_rooms",
		statements: []string{
			`CREATE TABLE rooms (
				name TEXT PRIMARY KEY,
				capacity INTEGER NOT NULL CHECK (capacity >= -1),
				has_computers INTEGER NOT NULL DEFAULT 0,
				has_projector INTEGER NOT NULL DEFAULT 0,
				position INTEGER NOT NULL
			)`,
			`CREATE TABLE room_attributes (
				room_name TEXT NOT NULL REFERENCES rooms(name) ON DELETE CASCADE,
				name TEXT NOT NULL,
				value TEXT NOT NULL,
				PRIMARY KEY (room_name, name)
			)`,
		},
	},
	{
		version: "002_slots",
		statements: []string{
			`CREATE TABLE recurrence_groups (
				id TEXT PRIMARY KEY,
				room_name TEXT NOT NULL REFERENCES rooms(name) ON DELETE CASCADE,
				weekday INTEGER NOT NULL,
				period INTEGER NOT NULL,
				start_minute INTEGER NOT NULL,
				end_minute INTEGER NOT NULL,
				from_date TEXT NOT NULL,
				until_date TEXT NOT NULL,
				rrule TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE slots (
				position INTEGER PRIMARY KEY,
				date TEXT NOT NULL,
				start_minute INTEGER NOT NULL,
				end_minute INTEGER NOT NULL CHECK (end_minute > start_minute),
				room_name TEXT NOT NULL REFERENCES rooms(name) ON DELETE CASCADE,
				group_id TEXT REFERENCES recurrence_groups(id) ON DELETE SET NULL,
				UNIQUE (date, start_minute, end_minute, room_name)
			)`,
			`CREATE INDEX idx_slots_date ON slots(date)`,
		},
	},
	{
		version: "003_archive_meta",
		statements: []string{
			`CREATE TABLE archive_meta (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				revision INTEGER NOT NULL,
				saved_at TEXT NOT NULL
			)`,
		},
	},
}

// migrate creates the version table and applies pending migrations, each in
// its own transaction.
func (a *Archive) migrate(ctx context.Context) error {
	const versionTable = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			execution_time_ms INTEGER
		)`
	if _, err := a.pool.DB().ExecContext(ctx, versionTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := a.isApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		started := a.now()
		err = a.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for i, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %s: statement %d: %w", m.version, i+1, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at, execution_time_ms) VALUES (?, ?, ?)`,
				m.version, a.now().UTC().Format(time.RFC3339), a.now().Sub(started).Milliseconds())
			return err
		})
		if err != nil {
			return err
		}
		a.logger.Info("archive migration applied", "version", m.version)
	}
	return nil
}

func (a *Archive) isApplied(ctx context.Context, version string) (bool, error) {
	var exists int
	err := a.pool.DB().QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ? LIMIT 1`, version).Scan(&exists)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return true, nil
}
