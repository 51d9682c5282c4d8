package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"society-billing/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrator applies SQL files in name order and records them in schema_migrations
type Migrator struct {
	pool  *pgxpool.Pool
	files fs.FS
}

// NewMigrator creates a migration runner over an embedded file set
func NewMigrator(pool *pgxpool.Pool, files fs.FS) *Migrator {
	return &Migrator{
		pool:  pool,
		files: files,
	}
}

// RunMigrations executes all pending migrations. Files containing "reset"
// in their name are never applied automatically.
func (m *Migrator) RunMigrations(ctx context.Context) (int, error) {
	log := logger.WithComponent("migrator")

	if err := m.createMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending, err := m.pending(applied)
	if err != nil {
		return 0, err
	}

	for _, filename := range pending {
		content, err := fs.ReadFile(m.files, filename)
		if err != nil {
			return 0, fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		log.Info().Str("file", filename).Msg("running migration")
		tx, err := m.pool.Begin(ctx)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			tx.Rollback(ctx)
			return 0, fmt.Errorf("failed to run migration %s: %w", filename, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (filename) VALUES ($1) ON CONFLICT (filename) DO NOTHING`,
			filename,
		); err != nil {
			tx.Rollback(ctx)
			return 0, fmt.Errorf("failed to record migration %s: %w", filename, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, err
		}
	}

	if len(pending) == 0 {
		log.Info().Msg("database is up to date")
	} else {
		log.Info().Int("count", len(pending)).Msg("migrations applied")
	}
	return len(pending), nil
}

// pending lists migration files not yet applied, sorted by name
func (m *Migrator) pending(applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if strings.Contains(name, "reset") || applied[name] {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := m.pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		applied[filename] = true
	}

	return applied, rows.Err()
}
