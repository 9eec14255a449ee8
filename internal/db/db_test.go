package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "timekeeper.db")

	database, err := Open(path, "secret")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	// second run is a no-op
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}

	var version int
	if err := database.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("expected schema version %d, got %d", len(migrations), version)
	}

	for _, table := range []string{"timers", "active_timers", "timesheet_entries", "audit_log"} {
		var name string
		err := database.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_ForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	database, err := Open(filepath.Join(t.TempDir(), "timekeeper.db"), "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer database.Close()

	// hold several connections at once so the pool has to open new ones
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		conn, err := database.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	for i, conn := range conns {
		var enabled int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		if enabled != 1 {
			t.Errorf("conn %d: expected foreign keys on, got %d", i, enabled)
		}
	}

	if err := database.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	_, err = database.ExecContext(ctx, "INSERT INTO active_timers (user_id, timer_id) VALUES ('alice', 'missing')")
	if err == nil {
		t.Fatal("expected a dangling active slot to be rejected")
	}
}
