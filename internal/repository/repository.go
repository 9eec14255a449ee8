package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andy/timekeeper/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to another user
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional write lost a race or a unique key is taken
	ErrConflict = errors.New("conflicting write")
)

// Superseded is an active timer hard-stopped to make room for a new one
type Superseded struct {
	Timer   *domain.Timer
	Dropped time.Duration // unsaved running time lost by the hard stop
}

// EntryFilter narrows entry listings. Nil fields impose no constraint and
// both date bounds are inclusive against the entry start time.
type EntryFilter struct {
	UserID         *string
	CaseID         *string
	TaskID         *string
	StartDate      *time.Time
	EndDate        *time.Time
	IncludeDeleted bool
	Limit          int // 0 means no limit
}

// TimerRepository manages timers and the per-user active slot
type TimerRepository interface {
	// StartExclusive supersedes every active timer of timer.UserID, claims the
	// active slot and inserts timer, all atomically. It returns the timers it
	// superseded.
	StartExclusive(ctx context.Context, timer *domain.Timer, now time.Time) ([]Superseded, error)
	Get(ctx context.Context, userID, timerID string) (*domain.Timer, error)
	GetActive(ctx context.Context, userID string) (*domain.Timer, error) // Returns nil if no active timer
	ListActive(ctx context.Context, userID string) ([]*domain.Timer, error)
	// Update writes timer if the stored version still equals expectVersion
	Update(ctx context.Context, timer *domain.Timer, expectVersion int64) error
	// Stop writes the stopped timer, frees the active slot and inserts entry
	// (when non-nil) in one transaction. Inserting an entry that already
	// exists is a no-op.
	Stop(ctx context.Context, timer *domain.Timer, expectVersion int64, entry *domain.TimesheetEntry) error
}

// EntryRepository manages timesheet entry persistence
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.TimesheetEntry) error
	GetByID(ctx context.Context, userID, id string) (*domain.TimesheetEntry, error)
	List(ctx context.Context, filter EntryFilter) ([]*domain.TimesheetEntry, error)
	SoftDelete(ctx context.Context, userID, id string, now time.Time) error
}

// AuditRepository stores the audit trail
type AuditRepository interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
	List(ctx context.Context, limit int) ([]*domain.AuditEvent, error)
}

// Store bundles the repositories of one storage backend
type Store struct {
	Timers  TimerRepository
	Entries EntryRepository
	Audit   AuditRepository
	Close   func() error
}

// MatchesEntry reports whether e passes filter
func (f EntryFilter) MatchesEntry(e *domain.TimesheetEntry) bool {
	if e.IsDeleted && !f.IncludeDeleted {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.CaseID != nil && (e.CaseID == nil || *e.CaseID != *f.CaseID) {
		return false
	}
	if f.TaskID != nil && (e.TaskID == nil || *e.TaskID != *f.TaskID) {
		return false
	}
	if f.StartDate != nil && e.StartTime.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.StartTime.After(*f.EndDate) {
		return false
	}
	return true
}
