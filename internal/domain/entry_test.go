package domain

import (
	"testing"
	"time"
)

func ratePtr(r float64) *float64 { return &r }

func TestMaterializeEntry(t *testing.T) {
	timer := NewTimer("user-1", strPtr("case-9"), strPtr("task-3"), "Contract review", t0)
	if err := timer.Pause(t0.Add(25 * time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := timer.Resume(t0.Add(40 * time.Minute)); err != nil {
		t.Fatal(err)
	}
	stopAt := t0.Add(55 * time.Minute)
	if err := timer.Stop(stopAt); err != nil {
		t.Fatal(err)
	}

	entry, ok := MaterializeEntry(timer, ratePtr(6000), stopAt)
	if !ok {
		t.Fatalf("expected an entry to be materialized")
	}
	if entry.DurationMinutes != 40 {
		t.Errorf("expected 40 minutes, got %d", entry.DurationMinutes)
	}
	if entry.TotalAmount != 4000 {
		t.Errorf("expected amount 4000, got %v", entry.TotalAmount)
	}
	if !entry.EndTime.Equal(timer.StartTime.Add(40 * time.Minute)) {
		t.Errorf("expected end = start + total, got %v", entry.EndTime)
	}
	if !entry.Billable {
		t.Errorf("materialized entries are billable")
	}
	if entry.ID != EntryIDForTimer(timer.ID) {
		t.Errorf("expected deterministic entry ID")
	}
	if entry.TimerID == nil || *entry.TimerID != timer.ID {
		t.Errorf("expected entry to reference its timer")
	}
	if *entry.CaseID != "case-9" || *entry.TaskID != "task-3" {
		t.Errorf("expected case and task to be carried over")
	}
}

func TestMaterializeEntry_ZeroDuration(t *testing.T) {
	timer := NewTimer("user-1", nil, nil, "Nothing", t0)
	if err := timer.Stop(t0); err != nil {
		t.Fatal(err)
	}
	if _, ok := MaterializeEntry(timer, nil, t0); ok {
		t.Fatalf("zero-duration timers must not materialize")
	}
}

func TestMillisToMinutes(t *testing.T) {
	tests := []struct {
		ms   int64
		want int64
	}{
		{0, 0},
		{29_999, 0},
		{30_000, 1}, // half rounds away from zero
		{89_999, 1},
		{90_000, 2},
		{(40 * time.Minute).Milliseconds(), 40},
	}
	for _, tt := range tests {
		if got := MillisToMinutes(tt.ms); got != tt.want {
			t.Errorf("MillisToMinutes(%d) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}

func TestAmount(t *testing.T) {
	if got := Amount(90, nil); got != 0 {
		t.Errorf("nil rate should bill 0, got %v", got)
	}
	if got := Amount(90, ratePtr(0)); got != 0 {
		t.Errorf("zero rate should bill 0, got %v", got)
	}
	if got := Amount(90, ratePtr(200)); got != 300 {
		t.Errorf("expected 300, got %v", got)
	}
}

func TestEntryIDForTimer_Stable(t *testing.T) {
	a := EntryIDForTimer("timer-a")
	if a != EntryIDForTimer("timer-a") {
		t.Fatalf("entry ID must be stable for the same timer")
	}
	if a == EntryIDForTimer("timer-b") {
		t.Fatalf("different timers must map to different entries")
	}
}

func TestNewManualEntry(t *testing.T) {
	entry := NewManualEntry(ManualEntryInput{
		UserID:      "user-1",
		CaseID:      strPtr("case-1"),
		Description: "Court appearance",
		Category:    strPtr(""),
		StartTime:   t0,
		EndTime:     t0.Add(2*time.Hour + 30*time.Minute),
		Billable:    false,
		HourlyRate:  ratePtr(120),
	}, t0.Add(3*time.Hour))

	if entry.DurationMinutes != 150 {
		t.Errorf("expected 150 minutes, got %d", entry.DurationMinutes)
	}
	if entry.TotalAmount != 300 {
		t.Errorf("expected 300, got %v", entry.TotalAmount)
	}
	if entry.Billable {
		t.Errorf("expected billable flag from input")
	}
	if entry.Category != nil {
		t.Errorf("blank category should normalize to nil")
	}
	if err := entry.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	bad := NewManualEntry(ManualEntryInput{UserID: "user-1", StartTime: t0, EndTime: t0.Add(-time.Minute)}, t0)
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error for end before start")
	}
}
