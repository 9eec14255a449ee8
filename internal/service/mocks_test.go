package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/andy/timekeeper/internal/clock"
	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
	"github.com/andy/timekeeper/internal/repository/boltrepo"
)

var t0 = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func ratePtr(r float64) *float64 { return &r }

func newClock() *clock.Manual { return clock.NewManual(t0) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// recordingSink keeps every audit event, or fails when err is set
type recordingSink struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
	err    error
}

func (s *recordingSink) Record(ctx context.Context, event *domain.AuditEvent) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) actions() []domain.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditAction, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func newBoltStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := boltrepo.NewStore(filepath.Join(t.TempDir(), "timekeeper.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var errDiskFull = errors.New("disk full")

// mockTimerRepo fails every call with err, or returns a conflict on writes
type mockTimerRepo struct {
	timer    *domain.Timer
	err      error
	conflict bool
}

func (m *mockTimerRepo) StartExclusive(ctx context.Context, timer *domain.Timer, now time.Time) ([]repository.Superseded, error) {
	return nil, m.err
}
func (m *mockTimerRepo) Get(ctx context.Context, userID, timerID string) (*domain.Timer, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.timer == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.timer
	return &copied, nil
}
func (m *mockTimerRepo) GetActive(ctx context.Context, userID string) (*domain.Timer, error) {
	return nil, m.err
}
func (m *mockTimerRepo) ListActive(ctx context.Context, userID string) ([]*domain.Timer, error) {
	return nil, m.err
}
func (m *mockTimerRepo) Update(ctx context.Context, timer *domain.Timer, expectVersion int64) error {
	if m.conflict {
		return repository.ErrConflict
	}
	return m.err
}
func (m *mockTimerRepo) Stop(ctx context.Context, timer *domain.Timer, expectVersion int64, entry *domain.TimesheetEntry) error {
	if m.conflict {
		return repository.ErrConflict
	}
	return m.err
}

type mockEntryRepo struct {
	err error
}

func (m *mockEntryRepo) Create(ctx context.Context, entry *domain.TimesheetEntry) error { return m.err }
func (m *mockEntryRepo) GetByID(ctx context.Context, userID, id string) (*domain.TimesheetEntry, error) {
	return nil, m.err
}
func (m *mockEntryRepo) List(ctx context.Context, filter repository.EntryFilter) ([]*domain.TimesheetEntry, error) {
	return nil, m.err
}
func (m *mockEntryRepo) SoftDelete(ctx context.Context, userID, id string, now time.Time) error {
	return m.err
}
