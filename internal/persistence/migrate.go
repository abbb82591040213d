package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"contentops/internal/logger"
)

// Each driver has its own directory of migrations, e.g. migrations/sqlite/001_initial_schema.sql
//
//go:embed migrations
var migrationFiles embed.FS

var migrationName = regexp.MustCompile(`^(\d+)_(\w+)\.sql$`)

// Migration is one embedded SQL file
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus pairs a migration with whether it has been recorded
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
}

// MigrationManager applies the embedded migrations for one dialect
type MigrationManager struct {
	db  *SQLDB
	dir string
	log *slog.Logger
}

// NewMigrationManager creates a migration manager for the database's dialect
func NewMigrationManager(db *SQLDB) *MigrationManager {
	dir := "migrations/postgres"
	if db.driver == DriverSQLite {
		dir = "migrations/sqlite"
	}
	return &MigrationManager{
		db:  db,
		dir: dir,
		log: logger.Get(),
	}
}

// Migrate applies every embedded migration not yet recorded in schema_migrations, in version order
func (m *MigrationManager) Migrate(ctx context.Context) error {
	m.log.Info("Starting database migration", "driver", m.db.driver)

	available, applied, err := m.state(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, mig := range available {
		if !applied[mig.Version] {
			pending = append(pending, mig)
		}
	}
	if len(pending) == 0 {
		m.log.Info("Schema is up to date", "version", latest(applied))
		return nil
	}

	m.log.Info("Applying pending migrations", "count", len(pending))
	for _, mig := range pending {
		if err := m.applyMigration(ctx, mig); err != nil {
			return fmt.Errorf("migration %03d (%s): %w", mig.Version, mig.Description, err)
		}
	}

	m.log.Info("Database schema migrated", "version", pending[len(pending)-1].Version, "applied", len(pending))
	return nil
}

// Status lists the embedded migrations and whether each one is recorded
func (m *MigrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	available, applied, err := m.state(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, len(available))
	for i, mig := range available {
		out[i] = MigrationStatus{Version: mig.Version, Description: mig.Description, Applied: applied[mig.Version]}
	}
	return out, nil
}

// Rollback forgets the newest recorded migration. Schema changes are not reverted.
func (m *MigrationManager) Rollback(ctx context.Context) error {
	_, applied, err := m.state(ctx)
	if err != nil {
		return err
	}
	version := latest(applied)
	if version == 0 {
		return fmt.Errorf("nothing to roll back: schema_migrations is empty")
	}

	query, args, err := m.db.sb.Delete("schema_migrations").Where(sq.Eq{"version": version}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := m.db.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete migration record %d: %w", version, err)
	}

	m.log.Warn("Migration record deleted; the schema was left as is", "version", version)
	return nil
}

// state loads the embedded migrations and the recorded versions.
func (m *MigrationManager) state(ctx context.Context) ([]Migration, map[int]bool, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	available, err := m.loadMigrations()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	return available, applied, nil
}

func latest(applied map[int]bool) int {
	v := 0
	for version := range applied {
		v = max(v, version)
	}
	return v
}

func (m *MigrationManager) ensureMigrationsTable(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version     INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	_, err := m.db.db.ExecContext(ctx, ddl)
	return err
}

func (m *MigrationManager) appliedVersions(ctx context.Context) (map[int]bool, error) {
	query, args, err := m.db.sb.Select("version").From("schema_migrations").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := m.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// loadMigrations reads NNN_description.sql files from the dialect directory.
func (m *MigrationManager) loadMigrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFiles, path.Join(m.dir, "*.sql"))
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		match := migrationName.FindStringSubmatch(path.Base(name))
		if match == nil {
			m.log.Warn("Ignoring migration with unexpected file name", "file", name)
			continue
		}
		version, _ := strconv.Atoi(match[1])

		body, err := fs.ReadFile(migrationFiles, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(match[2], "_", " "),
			SQL:         string(body),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

// applyMigration executes the file and records its version in one transaction
func (m *MigrationManager) applyMigration(ctx context.Context, mig Migration) error {
	m.log.Info("Applying migration", "version", mig.Version, "description", mig.Description)

	tx, err := m.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	query, args, err := m.db.sb.Insert("schema_migrations").
		Columns("version", "description").
		Values(mig.Version, mig.Description).
		Suffix("ON CONFLICT (version) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record version: %w", err)
	}

	return tx.Commit()
}
