package store

import (
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"
)

func testRawDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	u := url.URL{Scheme: "file", Path: path}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func latestVersion() int {
	sorted := sortedMigrations()
	return sorted[len(sorted)-1].Version
}

func TestRunMigrationsFreshDB(t *testing.T) {
	db := testRawDB(t)

	if err := runMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	version, err := currentVersion(db)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if version != latestVersion() {
		t.Fatalf("expected version %d, got %d", latestVersion(), version)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='notes'").Scan(&count); err != nil {
		t.Fatalf("check notes: %v", err)
	}
	if count != 1 {
		t.Fatal("notes table not created")
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := testRawDB(t)

	for i := 0; i < 2; i++ {
		if err := runMigrations(db); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	var rows int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&rows); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if rows != len(migrations) {
		t.Fatalf("expected %d recorded migrations, got %d", len(migrations), rows)
	}
}

func TestPreMigrationNotesTableIsStamped(t *testing.T) {
	db := testRawDB(t)

	pre, err := detectPreMigrationDB(db)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if pre {
		t.Fatal("empty DB should not be pre-migration")
	}

	if _, err := db.Exec("CREATE TABLE notes (id TEXT PRIMARY KEY, title TEXT NOT NULL, content TEXT NOT NULL DEFAULT '', created_at TEXT NOT NULL, updated_at TEXT NOT NULL)"); err != nil {
		t.Fatalf("create notes: %v", err)
	}
	pre, err = detectPreMigrationDB(db)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !pre {
		t.Fatal("notes table without schema_migrations should be pre-migration")
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	pre, err = detectPreMigrationDB(db)
	if err != nil {
		t.Fatalf("detect after migration: %v", err)
	}
	if pre {
		t.Fatal("after migration should not be pre-migration")
	}

	var indexes int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_notes_updated_at_desc'").Scan(&indexes); err != nil {
		t.Fatalf("check index: %v", err)
	}
	if indexes != 1 {
		t.Fatal("expected later migrations to run on a stamped database")
	}
}

func TestMigrationPlan(t *testing.T) {
	db := testRawDB(t)

	plan, err := MigrationPlan(db)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.CurrentVersion != 0 {
		t.Fatalf("expected current 0, got %d", plan.CurrentVersion)
	}
	if plan.AvailableVersion != latestVersion() {
		t.Fatalf("expected available %d, got %d", latestVersion(), plan.AvailableVersion)
	}
	if len(plan.Pending) != len(migrations) {
		t.Fatalf("expected %d pending, got %d", len(migrations), len(plan.Pending))
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	plan, err = MigrationPlan(db)
	if err != nil {
		t.Fatalf("plan after: %v", err)
	}
	if len(plan.Pending) != 0 || plan.CurrentVersion != latestVersion() {
		t.Fatalf("expected nothing pending, got %+v", plan)
	}
}

func TestOpenForPlanThenMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")
	st, err := OpenForPlan(path)
	if err != nil {
		t.Fatalf("open for plan: %v", err)
	}
	defer st.Close()

	plan, err := MigrationPlan(st.DB())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Pending) == 0 {
		t.Fatal("expected pending migrations on a fresh database")
	}

	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	plan, err = MigrationPlan(st.DB())
	if err != nil {
		t.Fatalf("plan after migrate: %v", err)
	}
	if len(plan.Pending) != 0 {
		t.Fatalf("expected no pending migrations, got %+v", plan.Pending)
	}
}
