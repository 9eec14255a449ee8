package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// entryNamespace seeds the deterministic ids of entries materialized from timers
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("timekeeper:timesheet-entry"))

const millisPerMinute = 60 * 1000

// TimesheetEntry is the immutable billing record of a finished session
type TimesheetEntry struct {
	ID              string
	UserID          string
	CaseID          *string
	TaskID          *string
	TimerID         *string // nil for manually created entries
	Description     string
	Category        *string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int64
	Billable        bool
	HourlyRate      *float64
	TotalAmount     float64
	IsDeleted       bool // soft delete
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ManualEntryInput describes an entry recorded without a timer
type ManualEntryInput struct {
	UserID      string
	CaseID      *string
	TaskID      *string
	Description string
	Category    *string
	StartTime   time.Time
	EndTime     time.Time
	Billable    bool
	HourlyRate  *float64
}

// EntryIDForTimer returns the id of the entry materialized from timerID.
// The same timer always maps to the same entry.
func EntryIDForTimer(timerID string) string {
	return uuid.NewSHA1(entryNamespace, []byte(timerID)).String()
}

// MaterializeEntry converts a stopped timer into a timesheet entry.
// It returns false when the timer recorded no time.
func MaterializeEntry(t *Timer, hourlyRate *float64, now time.Time) (*TimesheetEntry, bool) {
	if t.TotalMillis <= 0 {
		return nil, false
	}

	duration := MillisToMinutes(t.TotalMillis)
	timerID := t.ID

	return &TimesheetEntry{
		ID:              EntryIDForTimer(t.ID),
		UserID:          t.UserID,
		CaseID:          copyRef(t.CaseID),
		TaskID:          copyRef(t.TaskID),
		TimerID:         &timerID,
		Description:     t.Description,
		StartTime:       t.StartTime,
		EndTime:         t.StartTime.Add(t.Total()),
		DurationMinutes: duration,
		Billable:        true,
		HourlyRate:      copyRate(hourlyRate),
		TotalAmount:     Amount(duration, hourlyRate),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, true
}

// NewManualEntry creates an entry from explicit start and end times
func NewManualEntry(in ManualEntryInput, now time.Time) *TimesheetEntry {
	duration := MillisToMinutes(in.EndTime.Sub(in.StartTime).Milliseconds())

	return &TimesheetEntry{
		ID:              uuid.NewString(),
		UserID:          strings.TrimSpace(in.UserID),
		CaseID:          normalizeRef(in.CaseID),
		TaskID:          normalizeRef(in.TaskID),
		Description:     strings.TrimSpace(in.Description),
		Category:        normalizeRef(in.Category),
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationMinutes: duration,
		Billable:        in.Billable,
		HourlyRate:      copyRate(in.HourlyRate),
		TotalAmount:     Amount(duration, in.HourlyRate),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MillisToMinutes rounds a millisecond duration to whole minutes, half away from zero
func MillisToMinutes(ms int64) int64 {
	return int64(math.Round(float64(ms) / millisPerMinute))
}

// Amount returns the billed amount for duration minutes at rate per hour.
// A nil or zero rate bills nothing.
func Amount(durationMinutes int64, rate *float64) float64 {
	if rate == nil || *rate == 0 {
		return 0
	}
	return float64(durationMinutes) / 60 * *rate
}

// Hours returns the entry duration in hours
func (e *TimesheetEntry) Hours() float64 {
	return float64(e.DurationMinutes) / 60
}

// Duration returns the entry duration
func (e *TimesheetEntry) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Validate returns an error if the entry is invalid
func (e *TimesheetEntry) Validate() error {
	if e.ID == "" {
		return errors.New("entry ID is required")
	}
	if strings.TrimSpace(e.UserID) == "" {
		return errors.New("user ID is required")
	}
	if e.StartTime.IsZero() {
		return errors.New("start time is required")
	}
	if e.EndTime.Before(e.StartTime) {
		return errors.New("end time must be after start time")
	}
	if e.HourlyRate != nil && *e.HourlyRate < 0 {
		return errors.New("hourly rate cannot be negative")
	}
	return nil
}

func copyRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := *ref
	return &v
}

func copyRate(rate *float64) *float64 {
	if rate == nil {
		return nil
	}
	v := *rate
	return &v
}
