// Package schema applies ordered, versioned migrations to a SQL database and
// records which versions have run.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// historyTable stores one row per applied migration
const historyTable = "schema_versions"

// Migration moves the schema from Version-1 to Version
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// AppliedVersion is a row of the history table
type AppliedVersion struct {
	Version     int
	Description string
	AppliedAt   time.Time
}

// Evolution holds the registered migrations of one database
type Evolution struct {
	migrations []Migration
	logger     *zap.Logger
}

// NewEvolution creates an empty migration set
func NewEvolution(logger *zap.Logger) *Evolution {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evolution{logger: logger}
}

// Register adds a migration. Versions start at 1 and must be unique.
func (e *Evolution) Register(m Migration) error {
	if m.Version < 1 {
		return fmt.Errorf("invalid migration version %d", m.Version)
	}
	if m.Up == nil {
		return fmt.Errorf("migration %d has no Up step", m.Version)
	}
	for _, existing := range e.migrations {
		if existing.Version == m.Version {
			return fmt.Errorf("migration %d already registered", m.Version)
		}
	}
	e.migrations = append(e.migrations, m)
	sort.Slice(e.migrations, func(i, j int) bool {
		return e.migrations[i].Version < e.migrations[j].Version
	})
	return nil
}

// Latest returns the highest registered version
func (e *Evolution) Latest() int {
	if len(e.migrations) == 0 {
		return 0
	}
	return e.migrations[len(e.migrations)-1].Version
}

// Apply runs every migration above the database's current version, each in
// its own transaction together with its history row. Gaps in the registered
// versions are rejected before anything runs.
func (e *Evolution) Apply(ctx context.Context, db *sql.DB) error {
	for i, m := range e.migrations {
		if m.Version != i+1 {
			return fmt.Errorf("migration versions must be contiguous: expected %d, got %d", i+1, m.Version)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+historyTable+` (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create %s: %w", historyTable, err)
	}

	current, err := Current(ctx, db)
	if err != nil {
		return err
	}
	if current > e.Latest() {
		return fmt.Errorf("database schema version %d is newer than this binary (%d)", current, e.Latest())
	}

	for _, m := range e.migrations[current:] {
		if err := e.applyOne(ctx, db, m); err != nil {
			return err
		}
		e.logger.Info("Applied schema migration",
			zap.Int("version", m.Version),
			zap.String("description", m.Description))
	}
	return nil
}

func (e *Evolution) applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}
	defer tx.Rollback()

	if err := m.Up(ctx, tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+historyTable+` (version, description, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("migration %d: record: %w", m.Version, err)
	}
	return tx.Commit()
}

// Current returns the highest applied version, 0 for a fresh database
func Current(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM `+historyTable).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// History lists applied migrations in version order
func History(ctx context.Context, db *sql.DB) ([]AppliedVersion, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT version, description, applied_at FROM `+historyTable+` ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("read schema history: %w", err)
	}
	defer rows.Close()

	var out []AppliedVersion
	for rows.Next() {
		var (
			v       AppliedVersion
			applied string
		)
		if err := rows.Scan(&v.Version, &v.Description, &applied); err != nil {
			return nil, err
		}
		v.AppliedAt, _ = time.Parse(time.RFC3339, applied)
		out = append(out, v)
	}
	return out, rows.Err()
}

// Exec builds an Up step from plain statements
func Exec(statements ...string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
