package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/andy/timekeeper/internal/clock"
	"github.com/andy/timekeeper/internal/domain"
)

func TestStatsService_AggregatesLiveEntries(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)
	// Wednesday afternoon
	clk := clock.NewManual(time.Date(2026, 3, 18, 17, 0, 0, 0, time.UTC))
	sink := &recordingSink{}
	entries := NewEntryService(store.Entries, nil, clk, nil, quietLogger())
	stats := NewStatsService(store.Entries, sink, clk, time.UTC, quietLogger())

	add := func(caseID string, start time.Time, minutes int) *domain.TimesheetEntry {
		e, err := entries.CreateEntry(ctx, domain.ManualEntryInput{
			UserID:    "alice",
			CaseID:    strPtr(caseID),
			StartTime: start,
			EndTime:   start.Add(time.Duration(minutes) * time.Minute),
			Billable:  true,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return e
	}

	add("c1", time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC), 90)
	add("c2", time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), 30)
	deleted := add("c1", time.Date(2026, 3, 18, 11, 0, 0, 0, time.UTC), 600)
	if err := entries.DeleteEntry(ctx, "alice", deleted.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := stats.GetTimesheetStats(ctx, domain.StatsFilter{UserID: strPtr("alice")})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if got.TotalSessions != 2 || got.TotalHours != 2 {
		t.Errorf("expected 2 sessions / 2h, got %d / %v", got.TotalSessions, got.TotalHours)
	}
	if got.DailyHours != 1.5 || got.WeeklyHours != 2 || got.MonthlyHours != 2 {
		t.Errorf("unexpected windows: day %v week %v month %v", got.DailyHours, got.WeeklyHours, got.MonthlyHours)
	}
	if diff := cmp.Diff(map[string]float64{"c1": 1.5, "c2": 0.5}, got.CaseHours); diff != "" {
		t.Errorf("case hours mismatch (-want +got):\n%s", diff)
	}
	if got.AverageSessionLength != 1 {
		t.Errorf("expected 1h average, got %v", got.AverageSessionLength)
	}

	actions := sink.actions()
	if len(actions) != 1 || actions[0] != domain.AuditGetTimesheetStats {
		t.Errorf("expected one stats audit event, got %v", actions)
	}
}

func TestStatsService_WindowsUseConfiguredLocation(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)
	loc := time.FixedZone("UTC-5", -5*60*60)
	// 02:00 UTC on Thursday is still Wednesday evening at UTC-5
	clk := clock.NewManual(time.Date(2026, 3, 19, 2, 0, 0, 0, time.UTC))
	entries := NewEntryService(store.Entries, nil, clk, nil, quietLogger())
	stats := NewStatsService(store.Entries, nil, clk, loc, quietLogger())

	start := time.Date(2026, 3, 18, 20, 0, 0, 0, time.UTC)
	if _, err := entries.CreateEntry(ctx, domain.ManualEntryInput{
		UserID:    "alice",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := stats.GetTimesheetStats(ctx, domain.StatsFilter{UserID: strPtr("alice")})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.DailyHours != 1 {
		t.Errorf("expected the entry to count for today in UTC-5, got %v", got.DailyHours)
	}
}

func TestStatsService_InvertedRangeYieldsZeroedStats(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)
	clk := newClock()
	entries := NewEntryService(store.Entries, nil, clk, nil, quietLogger())
	svc := NewStatsService(store.Entries, nil, clk, nil, quietLogger())

	if _, err := entries.CreateEntry(ctx, domain.ManualEntryInput{
		UserID:    "alice",
		StartTime: t0,
		EndTime:   t0.Add(time.Hour),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	start := t0
	end := t0.Add(-time.Hour)
	got, err := svc.GetTimesheetStats(ctx, domain.StatsFilter{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("expected zeroed stats, got error %v", err)
	}
	if got.TotalSessions != 0 || got.TotalHours != 0 || got.AverageSessionLength != 0 {
		t.Errorf("expected zeroed stats, got %+v", got)
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) || got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Errorf("expected the filter range to be echoed, got %v / %v", got.StartDate, got.EndDate)
	}
}

func TestStatsService_StorageFailure(t *testing.T) {
	svc := NewStatsService(&mockEntryRepo{err: errDiskFull}, nil, newClock(), nil, quietLogger())

	_, err := svc.GetTimesheetStats(context.Background(), domain.StatsFilter{})
	if !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
}
