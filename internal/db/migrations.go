package db

import (
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
-- Timers: one row per recording session
CREATE TABLE timers (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    case_id TEXT,
    task_id TEXT,
    status TEXT NOT NULL CHECK (status IN ('running', 'paused', 'stopped')),
    description TEXT NOT NULL,
    start_time TEXT NOT NULL,
    paused_at TEXT,
    current_session_ms INTEGER NOT NULL DEFAULT 0,
    total_paused_ms INTEGER NOT NULL DEFAULT 0,
    total_ms INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    version INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    last_updated TEXT NOT NULL
);

-- Per-user active slot
CREATE TABLE active_timers (
    user_id TEXT PRIMARY KEY,
    timer_id TEXT NOT NULL REFERENCES timers(id)
);

-- Timesheet entries, append-only apart from soft delete
CREATE TABLE timesheet_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    case_id TEXT,
    task_id TEXT,
    timer_id TEXT UNIQUE REFERENCES timers(id),
    description TEXT NOT NULL DEFAULT '',
    category TEXT,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    duration_minutes INTEGER NOT NULL,
    billable INTEGER NOT NULL DEFAULT 1,
    hourly_rate REAL,
    total_amount REAL NOT NULL DEFAULT 0,
    is_deleted INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Audit trail of successful operations
CREATE TABLE audit_log (
    id TEXT PRIMARY KEY,
    action TEXT NOT NULL,
    resource TEXT NOT NULL,
    user_id TEXT NOT NULL,
    details TEXT NOT NULL DEFAULT '{}',
    timestamp TEXT NOT NULL
);

-- Indexes
CREATE UNIQUE INDEX idx_timers_one_active ON timers(user_id) WHERE is_active = 1;
CREATE INDEX idx_timers_user ON timers(user_id, created_at);
CREATE INDEX idx_entries_user_start ON timesheet_entries(user_id, start_time);
CREATE INDEX idx_entries_case_start ON timesheet_entries(case_id, start_time) WHERE case_id IS NOT NULL;
CREATE INDEX idx_entries_task_start ON timesheet_entries(task_id, start_time) WHERE task_id IS NOT NULL;
CREATE INDEX idx_entries_start ON timesheet_entries(start_time);
CREATE INDEX idx_audit_timestamp ON audit_log(timestamp);
`,
	},
}

// RunMigrations applies all pending database migrations
func (db *DB) RunMigrations() error {
	// Ensure schema_version table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Get current schema version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Apply pending migrations in a transaction
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if _, err := tx.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}
