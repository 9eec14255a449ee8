package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
)

func TestEntryService_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)
	sink := &recordingSink{}
	svc := NewEntryService(store.Entries, sink, newClock(), ratePtr(120), quietLogger())

	entry, err := svc.CreateEntry(ctx, domain.ManualEntryInput{
		UserID:      "alice",
		CaseID:      strPtr("case-1"),
		Description: "Court appearance",
		StartTime:   t0,
		EndTime:     t0.Add(150 * time.Minute),
		Billable:    true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.DurationMinutes != 150 || entry.TotalAmount != 300 {
		t.Errorf("expected 150 minutes at the default rate (300), got %d / %v", entry.DurationMinutes, entry.TotalAmount)
	}

	got, err := svc.GetEntry(ctx, "alice", entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != entry.ID {
		t.Fatalf("expected entry %s, got %s", entry.ID, got.ID)
	}

	if err := svc.DeleteEntry(ctx, "alice", entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetEntry(ctx, "alice", entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.DeleteEntry(ctx, "alice", entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	actions := sink.actions()
	if len(actions) != 2 || actions[0] != domain.AuditCreateEntry || actions[1] != domain.AuditDeleteEntry {
		t.Errorf("unexpected audit trail: %v", actions)
	}
}

func TestEntryService_CreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc := NewEntryService(&mockEntryRepo{}, nil, newClock(), nil, quietLogger())

	tests := []struct {
		name string
		in   domain.ManualEntryInput
	}{
		{"end before start", domain.ManualEntryInput{UserID: "alice", StartTime: t0, EndTime: t0.Add(-time.Minute)}},
		{"missing user", domain.ManualEntryInput{StartTime: t0, EndTime: t0.Add(time.Minute)}},
		{"negative rate", domain.ManualEntryInput{UserID: "alice", StartTime: t0, EndTime: t0.Add(time.Minute), HourlyRate: ratePtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateEntry(ctx, tt.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestEntryService_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)
	svc := NewEntryService(store.Entries, nil, newClock(), nil, quietLogger())

	for i := 0; i < 3; i++ {
		start := t0.Add(time.Duration(i) * time.Hour)
		if _, err := svc.CreateEntry(ctx, domain.ManualEntryInput{
			UserID:    "alice",
			TaskID:    strPtr("task-1"),
			StartTime: start,
			EndTime:   start.Add(30 * time.Minute),
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	entries, err := svc.ListEntries(ctx, repository.EntryFilter{UserID: strPtr("alice"), TaskID: strPtr("task-1"), Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].StartTime.After(entries[1].StartTime) {
		t.Errorf("expected newest first")
	}

	if _, err := svc.ListEntries(ctx, repository.EntryFilter{Limit: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for negative limit, got %v", err)
	}
}

func TestEntryService_StorageFailure(t *testing.T) {
	ctx := context.Background()
	svc := NewEntryService(&mockEntryRepo{err: errDiskFull}, nil, newClock(), nil, quietLogger())

	_, err := svc.ListEntries(ctx, repository.EntryFilter{})
	if !errors.Is(err, ErrStorageFailure) || !errors.Is(err, errDiskFull) {
		t.Fatalf("expected wrapped storage failure, got %v", err)
	}
}
