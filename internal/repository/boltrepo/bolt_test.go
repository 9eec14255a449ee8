package boltrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
)

var t0 = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "timekeeper.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timekeeper.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := Open(path); !errors.Is(err, errLocked) {
		t.Fatalf("expected errLocked, got %v", err)
	}
}

func TestTimerRepo_SingleActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := domain.NewTimer("alice", nil, nil, "Drafting", t0)
	if _, err := store.Timers.StartExclusive(ctx, first, t0); err != nil {
		t.Fatalf("start first: %v", err)
	}
	second := domain.NewTimer("alice", nil, nil, "Calls", t0.Add(time.Minute))
	superseded, err := store.Timers.StartExclusive(ctx, second, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("start second: %v", err)
	}
	if len(superseded) != 1 || superseded[0].Timer.ID != first.ID || superseded[0].Timer.IsActive {
		t.Fatalf("expected first timer superseded, got %+v", superseded)
	}

	active, err := store.Timers.ListActive(ctx, "alice")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID {
		t.Fatalf("expected exactly the second timer active, got %d", len(active))
	}

	slot, err := store.Timers.GetActive(ctx, "alice")
	if err != nil || slot == nil || slot.ID != second.ID {
		t.Fatalf("expected active slot to hold second timer, got %v %v", slot, err)
	}
}

func TestTimerRepo_UpdateAndConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	timer := domain.NewTimer("alice", strPtr("case-1"), nil, "Review", t0)
	if _, err := store.Timers.StartExclusive(ctx, timer, t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	stale := *timer

	if err := timer.Pause(t0.Add(5 * time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := store.Timers.Update(ctx, timer, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	if timer.Version != 2 {
		t.Fatalf("expected version 2, got %d", timer.Version)
	}

	got, err := store.Timers.Get(ctx, "alice", timer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(timer, got); diff != "" {
		t.Errorf("timer mismatch (-want +got):\n%s", diff)
	}

	if err := stale.Stop(t0.Add(6 * time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := store.Timers.Stop(ctx, &stale, 1, nil); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := store.Timers.Get(ctx, "bob", timer.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}
}

func TestTimerRepo_StopIsIdempotentForEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	timer := domain.NewTimer("alice", nil, nil, "Review", t0)
	if _, err := store.Timers.StartExclusive(ctx, timer, t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	stopAt := t0.Add(30 * time.Minute)
	if err := timer.Stop(stopAt); err != nil {
		t.Fatal(err)
	}
	entry, _ := domain.MaterializeEntry(timer, nil, stopAt)
	if err := store.Timers.Stop(ctx, timer, 1, entry); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if err := store.Entries.Create(ctx, entry); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected duplicate create to conflict, got %v", err)
	}

	list, err := store.Entries.List(ctx, repository.EntryFilter{UserID: strPtr("alice")})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].DurationMinutes != 30 {
		t.Fatalf("expected one 30 minute entry, got %+v", list)
	}

	slot, err := store.Timers.GetActive(ctx, "alice")
	if err != nil || slot != nil {
		t.Fatalf("expected free active slot, got %v %v", slot, err)
	}
}

func TestEntryRepo_ListAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var ids []string
	for i, caseID := range []string{"c1", "c2", "c1"} {
		start := t0.Add(time.Duration(i) * time.Hour)
		e := domain.NewManualEntry(domain.ManualEntryInput{
			UserID:    "alice",
			CaseID:    strPtr(caseID),
			StartTime: start,
			EndTime:   start.Add(15 * time.Minute),
		}, start)
		if err := store.Entries.Create(ctx, e); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, e.ID)
	}

	list, err := store.Entries.List(ctx, repository.EntryFilter{CaseID: strPtr("c1")})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != ids[2] {
		t.Fatalf("expected c1 entries newest first, got %d", len(list))
	}

	if err := store.Entries.SoftDelete(ctx, "alice", ids[2], t0.Add(5*time.Hour)); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := store.Entries.GetByID(ctx, "alice", ids[2]); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected deleted entry hidden, got %v", err)
	}

	list, err = store.Entries.List(ctx, repository.EntryFilter{UserID: strPtr("alice"), Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != ids[1] {
		t.Fatalf("expected newest live entry, got %+v", list)
	}
}

func TestAuditRepo_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i, action := range []domain.AuditAction{domain.AuditStartTimer, domain.AuditPauseTimer, domain.AuditStopTimer} {
		e := domain.NewAuditEvent(action, domain.TimerResource("t1"), "alice", nil, t0.Add(time.Duration(i)*time.Second))
		if err := store.Audit.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	events, err := store.Audit.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].Action != domain.AuditStopTimer || events[1].Action != domain.AuditPauseTimer {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestTimerRepo_ConcurrentStartsLeaveOneActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const starts = 20
	var wg sync.WaitGroup
	errs := make(chan error, starts)
	for i := 0; i < starts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := t0.Add(time.Duration(i) * time.Second)
			timer := domain.NewTimer("alice", nil, nil, fmt.Sprintf("session %d", i), at)
			if _, err := store.Timers.StartExclusive(ctx, timer, at); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("start failed: %v", err)
	}

	active, err := store.Timers.ListActive(ctx, "alice")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active timer, got %d", len(active))
	}
	slot, err := store.Timers.GetActive(ctx, "alice")
	if err != nil || slot == nil || slot.ID != active[0].ID {
		t.Fatalf("expected the active slot to hold %s, got %v %v", active[0].ID, slot, err)
	}
}

func TestTimerRepo_ConcurrentPausesFoldOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	timer := domain.NewTimer("alice", nil, nil, "Review", t0)
	if _, err := store.Timers.StartExclusive(ctx, timer, t0); err != nil {
		t.Fatalf("start: %v", err)
	}

	const pauses = 10
	pauseAt := t0.Add(10 * time.Minute)
	var wg sync.WaitGroup
	var ok, lost atomic.Int32
	for i := 0; i < pauses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			current, err := store.Timers.Get(ctx, "alice", timer.ID)
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			expect := current.Version
			if err := current.Pause(pauseAt); err != nil {
				// read after another pause committed
				lost.Add(1)
				return
			}
			switch err := store.Timers.Update(ctx, current, expect); {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, repository.ErrConflict):
				lost.Add(1)
			default:
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || lost.Load() != pauses-1 {
		t.Fatalf("expected 1 pause to win and %d to lose, got %d / %d", pauses-1, ok.Load(), lost.Load())
	}

	got, err := store.Timers.Get(ctx, "alice", timer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.TimerStatusPaused || got.TotalMillis != (10*time.Minute).Milliseconds() {
		t.Errorf("expected a single 10m fold, got %s %dms", got.Status, got.TotalMillis)
	}
	if got.Version != 2 {
		t.Errorf("expected one write after start, got version %d", got.Version)
	}
}
