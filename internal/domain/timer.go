package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TimerStatus string

const (
	TimerStatusRunning TimerStatus = "running"
	TimerStatusPaused  TimerStatus = "paused"
	TimerStatusStopped TimerStatus = "stopped"
)

var (
	ErrTimerNotRunning = errors.New("timer is not running")
	ErrTimerNotPaused  = errors.New("timer is not paused")
	ErrTimerStopped    = errors.New("timer is already stopped")
)

// Timer is one recording session owned by a single user.
//
// StartTime is re-anchored on resume to now - CurrentSessionMillis, so
// now - StartTime always measures the running time since the anchor.
// CurrentSessionMillis holds that measurement as of the last pause or stop and
// only the part measured since then is folded into TotalMillis.
type Timer struct {
	ID                   string
	UserID               string
	CaseID               *string
	TaskID               *string
	Status               TimerStatus
	Description          string
	StartTime            time.Time
	PausedAt             *time.Time
	CurrentSessionMillis int64
	TotalPausedMillis    int64
	TotalMillis          int64
	IsActive             bool
	Version              int64 // bumped on every write, used for conditional updates
	CreatedAt            time.Time
	LastUpdated          time.Time
}

// NewTimer creates a new running timer started at now
func NewTimer(userID string, caseID, taskID *string, description string, now time.Time) *Timer {
	return &Timer{
		ID:          uuid.NewString(),
		UserID:      userID,
		CaseID:      normalizeRef(caseID),
		TaskID:      normalizeRef(taskID),
		Status:      TimerStatusRunning,
		Description: strings.TrimSpace(description),
		StartTime:   now,
		IsActive:    true,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// Validate returns an error if the timer is invalid
func (t *Timer) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return errors.New("user ID is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return errors.New("description is required")
	}
	if t.StartTime.IsZero() {
		return errors.New("start time is required")
	}
	if t.TotalMillis < 0 || t.TotalPausedMillis < 0 || t.CurrentSessionMillis < 0 {
		return errors.New("accumulated durations cannot be negative")
	}
	return nil
}

// Pause folds the running segment into the total
func (t *Timer) Pause(now time.Time) error {
	if t.Status != TimerStatusRunning {
		return ErrTimerNotRunning
	}

	t.fold(now)
	t.Status = TimerStatusPaused
	t.PausedAt = &now
	t.LastUpdated = now
	return nil
}

// Resume continues a paused timer
func (t *Timer) Resume(now time.Time) error {
	if t.Status != TimerStatusPaused {
		return ErrTimerNotPaused
	}

	if t.PausedAt != nil {
		t.TotalPausedMillis += millisBetween(*t.PausedAt, now)
	}
	t.StartTime = now.Add(-time.Duration(t.CurrentSessionMillis) * time.Millisecond)
	t.Status = TimerStatusRunning
	t.PausedAt = nil
	t.LastUpdated = now
	return nil
}

// Stop ends the timer. A running segment is folded into the total, a paused
// timer already folded its segment on pause.
func (t *Timer) Stop(now time.Time) error {
	switch t.Status {
	case TimerStatusStopped:
		return ErrTimerStopped
	case TimerStatusRunning:
		t.fold(now)
	}

	t.Status = TimerStatusStopped
	t.IsActive = false
	t.LastUpdated = now
	return nil
}

// Supersede hard-stops the timer so a new one can take the user's slot.
// Nothing is folded: the returned unsaved time is lost.
func (t *Timer) Supersede(now time.Time) time.Duration {
	dropped := time.Duration(t.UnsavedMillis(now)) * time.Millisecond
	t.Status = TimerStatusStopped
	t.IsActive = false
	t.LastUpdated = now
	return dropped
}

// Elapsed returns the accumulated running time as of now
func (t *Timer) Elapsed(now time.Time) time.Duration {
	return time.Duration(t.TotalMillis+t.UnsavedMillis(now)) * time.Millisecond
}

// UnsavedMillis returns the running time not yet folded into TotalMillis.
// A hard stop at now loses exactly this much.
func (t *Timer) UnsavedMillis(now time.Time) int64 {
	if t.Status != TimerStatusRunning {
		return 0
	}
	unsaved := millisBetween(t.StartTime, now) - t.CurrentSessionMillis
	if unsaved < 0 {
		return 0
	}
	return unsaved
}

func (t *Timer) fold(now time.Time) {
	measured := millisBetween(t.StartTime, now)
	if delta := measured - t.CurrentSessionMillis; delta > 0 {
		t.TotalMillis += delta
	}
	t.CurrentSessionMillis = measured
}

// Total returns TotalMillis as a duration
func (t *Timer) Total() time.Duration {
	return time.Duration(t.TotalMillis) * time.Millisecond
}

// IsRunning returns true while the timer is accumulating time
func (t *Timer) IsRunning() bool {
	return t.Status == TimerStatusRunning
}

func millisBetween(from, to time.Time) int64 {
	d := to.Sub(from).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}

func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" {
		return nil
	}
	return &v
}
