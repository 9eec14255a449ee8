package repository

import (
	"github.com/andy/timekeeper/internal/db"
)

// NewSQLiteStore wires the SQLite repositories over an open database
func NewSQLiteStore(database *db.DB) *Store {
	return &Store{
		Timers:  NewTimerRepo(database),
		Entries: NewEntryRepo(database),
		Audit:   NewAuditRepo(database),
		Close:   database.Close,
	}
}
