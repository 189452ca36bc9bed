package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration represents a schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus reports the current and available migration versions.
type MigrationStatus struct {
	CurrentVersion   int             `json:"current_version"`
	AvailableVersion int             `json:"available_version"`
	Pending          []MigrationInfo `json:"pending"`
}

// MigrationInfo describes a single migration.
type MigrationInfo struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// migrations is the ordered list of all schema migrations.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: notes table",
		SQL: `
CREATE TABLE IF NOT EXISTS notes (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  content TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "index notes by last update",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_notes_updated_at_desc ON notes(updated_at DESC);
`,
	},
}

const migrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
);
`

func tableExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	return n > 0, err
}

// currentVersion returns the highest applied migration version, or 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// detectPreMigrationDB reports a notes table with no recorded migrations, as
// left by builds that created the schema directly.
func detectPreMigrationDB(db *sql.DB) (bool, error) {
	hasNotes, err := tableExists(db, "notes")
	if err != nil || !hasNotes {
		return false, err
	}
	hasLedger, err := tableExists(db, "schema_migrations")
	if err != nil {
		return false, err
	}
	if !hasLedger {
		return true, nil
	}
	version, err := currentVersion(db)
	return version == 0, err
}

// prepareLedger creates schema_migrations and returns the effective schema
// version. A pre-migration database counts as version 1; stamp records that.
func prepareLedger(db *sql.DB, stamp bool) (int, error) {
	preMigration, err := detectPreMigrationDB(db)
	if err != nil {
		return 0, fmt.Errorf("detect pre-migration db: %w", err)
	}
	if _, err := db.Exec(migrationsTableSQL); err != nil {
		return 0, fmt.Errorf("create migrations table: %w", err)
	}
	if preMigration && stamp {
		if _, err := db.Exec("INSERT OR IGNORE INTO schema_migrations (version, applied_at) VALUES (1, ?)", formatTime(time.Now())); err != nil {
			return 0, fmt.Errorf("stamp pre-migration db: %w", err)
		}
	}
	current, err := currentVersion(db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if preMigration && current == 0 {
		current = 1
	}
	return current, nil
}

func applyMigration(db *sql.DB, m Migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err = tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, formatTime(time.Now())); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// runMigrations applies all pending migrations in version order, one
// transaction each.
func runMigrations(db *sql.DB) error {
	current, err := prepareLedger(db, true)
	if err != nil {
		return err
	}
	for _, m := range sortedMigrations() {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrationPlan returns the current migration status without applying
// anything beyond creating the bookkeeping table.
func MigrationPlan(db *sql.DB) (*MigrationStatus, error) {
	current, err := prepareLedger(db, false)
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{CurrentVersion: current}
	for _, m := range sortedMigrations() {
		status.AvailableVersion = max(status.AvailableVersion, m.Version)
		if m.Version > current {
			status.Pending = append(status.Pending, MigrationInfo{Version: m.Version, Description: m.Description})
		}
	}
	return status, nil
}

// Migrate applies pending migrations to an already open store.
func (s *Store) Migrate() error {
	return runMigrations(s.db)
}

func sortedMigrations() []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}
