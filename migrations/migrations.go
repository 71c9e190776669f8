// Package migrations embeds the database schema and applies it in file-name
// order, recording each applied file in schema_migrations.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// advisoryLockKey serializes concurrent migration runs across processes.
const advisoryLockKey = 727274

// Apply runs every pending migration, each inside its own transaction.
func Apply(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	names, err := List()
	if err != nil {
		return err
	}

	for _, name := range names {
		applied, err := applyOne(ctx, db, name)
		if err != nil {
			return err
		}
		if applied {
			logger.Info("Applied migration", "version", name)
		}
	}
	return nil
}

// List returns the embedded migration file names in apply order.
func List() ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func applyOne(ctx context.Context, db *sql.DB, name string) (bool, error) {
	body, err := fs.ReadFile(files, name)
	if err != nil {
		return false, fmt.Errorf("failed to read migration %s: %w", name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
		return false, fmt.Errorf("failed to lock migrations: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return false, fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
		return false, fmt.Errorf("failed to record migration %s: %w", name, err)
	}

	return true, tx.Commit()
}
