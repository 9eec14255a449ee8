package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/andy/timekeeper/internal/clock"
	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
)

// StartInput describes a new timer
type StartInput struct {
	UserID      string
	CaseID      *string
	TaskID      *string
	Description string
}

// StopOptions control what happens when a timer stops
type StopOptions struct {
	SaveEntry  bool
	HourlyRate *float64 // nil falls back to the configured default rate
}

// StopResult is the stopped timer and the entry it produced, if any
type StopResult struct {
	Timer *domain.Timer
	Entry *domain.TimesheetEntry
}

// TimerService manages the timer state machine
type TimerService interface {
	// Start supersedes the user's active timers and starts a new one
	Start(ctx context.Context, in StartInput) (*domain.Timer, error)

	// Pause pauses a running timer
	Pause(ctx context.Context, userID, timerID string) (*domain.Timer, error)

	// Resume resumes a paused timer
	Resume(ctx context.Context, userID, timerID string) (*domain.Timer, error)

	// Stop stops a running or paused timer and optionally records an entry
	Stop(ctx context.Context, userID, timerID string, opts StopOptions) (*StopResult, error)

	GetTimer(ctx context.Context, userID, timerID string) (*domain.Timer, error)

	// GetActiveTimer returns the user's active timer, or nil if idle
	GetActiveTimer(ctx context.Context, userID string) (*domain.Timer, error)

	ListActiveTimers(ctx context.Context, userID string) ([]*domain.Timer, error)
}

type timerService struct {
	timerRepo   repository.TimerRepository
	clock       clock.Clock
	defaultRate *float64
	audit       auditor
	log         *slog.Logger
}

// NewTimerService creates a new timer service. defaultRate may be nil.
func NewTimerService(
	timerRepo repository.TimerRepository,
	sink AuditSink,
	clk clock.Clock,
	defaultRate *float64,
	log *slog.Logger,
) TimerService {
	if log == nil {
		log = slog.Default()
	}
	return &timerService{
		timerRepo:   timerRepo,
		clock:       clk,
		defaultRate: defaultRate,
		audit:       auditor{sink: sink, log: log},
		log:         log,
	}
}

func (s *timerService) Start(ctx context.Context, in StartInput) (*domain.Timer, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}

	now := s.clock.Now()
	timer := domain.NewTimer(in.UserID, in.CaseID, in.TaskID, in.Description, now)
	if err := timer.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	superseded, err := s.timerRepo.StartExclusive(ctx, timer, now)
	if err != nil {
		return nil, storageErr("start timer", err, ErrNotFound)
	}

	for _, old := range superseded {
		s.log.WarnContext(ctx, "superseded active timer",
			"user_id", old.Timer.UserID,
			"timer_id", old.Timer.ID,
			"replaced_by", timer.ID,
			"dropped", old.Dropped.String(),
		)
		details := timerDetails(old.Timer)
		details["droppedMillis"] = old.Dropped.Milliseconds()
		details["replacedBy"] = timer.ID
		s.audit.record(ctx, domain.AuditSupersedeTimer, domain.TimerResource(old.Timer.ID), old.Timer.UserID, details, now)
	}

	s.log.InfoContext(ctx, "timer started", "user_id", timer.UserID, "timer_id", timer.ID)
	s.audit.record(ctx, domain.AuditStartTimer, domain.TimerResource(timer.ID), timer.UserID, timerDetails(timer), now)

	return timer, nil
}

func (s *timerService) Pause(ctx context.Context, userID, timerID string) (*domain.Timer, error) {
	return s.transition(ctx, userID, timerID, domain.AuditPauseTimer, (*domain.Timer).Pause)
}

func (s *timerService) Resume(ctx context.Context, userID, timerID string) (*domain.Timer, error) {
	return s.transition(ctx, userID, timerID, domain.AuditResumeTimer, (*domain.Timer).Resume)
}

// transition applies a pause or resume. A missing timer is reported as
// ErrInvalidState, the same as a timer in the wrong status.
func (s *timerService) transition(
	ctx context.Context,
	userID, timerID string,
	action domain.AuditAction,
	apply func(*domain.Timer, time.Time) error,
) (*domain.Timer, error) {
	if err := requireIDs(userID, timerID); err != nil {
		return nil, err
	}

	timer, err := s.timerRepo.Get(ctx, userID, timerID)
	if err != nil {
		return nil, storageErr("get timer", err, ErrInvalidState)
	}

	now := s.clock.Now()
	expect := timer.Version
	if err := apply(timer, now); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	if err := s.timerRepo.Update(ctx, timer, expect); err != nil {
		return nil, storageErr("update timer", err, ErrInvalidState)
	}

	s.log.InfoContext(ctx, "timer updated", "user_id", userID, "timer_id", timerID, "status", string(timer.Status))
	s.audit.record(ctx, action, domain.TimerResource(timer.ID), userID, timerDetails(timer), now)

	return timer, nil
}

func (s *timerService) Stop(ctx context.Context, userID, timerID string, opts StopOptions) (*StopResult, error) {
	if err := requireIDs(userID, timerID); err != nil {
		return nil, err
	}
	if opts.HourlyRate != nil && *opts.HourlyRate < 0 {
		return nil, fmt.Errorf("%w: hourly rate cannot be negative", ErrInvalidInput)
	}

	timer, err := s.timerRepo.Get(ctx, userID, timerID)
	if err != nil {
		return nil, storageErr("get timer", err, ErrNotFound)
	}

	now := s.clock.Now()
	expect := timer.Version
	if err := timer.Stop(now); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	var entry *domain.TimesheetEntry
	if opts.SaveEntry {
		rate := opts.HourlyRate
		if rate == nil {
			rate = s.defaultRate
		}
		if e, ok := domain.MaterializeEntry(timer, rate, now); ok {
			entry = e
		}
	}

	if err := s.timerRepo.Stop(ctx, timer, expect, entry); err != nil {
		return nil, storageErr("stop timer", err, ErrNotFound)
	}

	s.log.InfoContext(ctx, "timer stopped",
		"user_id", userID,
		"timer_id", timerID,
		"total", timer.Total().String(),
		"entry_saved", entry != nil,
	)
	details := timerDetails(timer)
	if entry != nil {
		details["entryId"] = entry.ID
		details["durationMinutes"] = entry.DurationMinutes
		s.audit.record(ctx, domain.AuditCreateEntry, domain.EntryResource(entry.ID), userID, entryDetails(entry), now)
	}
	s.audit.record(ctx, domain.AuditStopTimer, domain.TimerResource(timer.ID), userID, details, now)

	return &StopResult{Timer: timer, Entry: entry}, nil
}

func (s *timerService) GetTimer(ctx context.Context, userID, timerID string) (*domain.Timer, error) {
	if err := requireIDs(userID, timerID); err != nil {
		return nil, err
	}
	timer, err := s.timerRepo.Get(ctx, userID, timerID)
	if err != nil {
		return nil, storageErr("get timer", err, ErrNotFound)
	}
	return timer, nil
}

func (s *timerService) GetActiveTimer(ctx context.Context, userID string) (*domain.Timer, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	timer, err := s.timerRepo.GetActive(ctx, userID)
	if err != nil {
		return nil, storageErr("get active timer", err, ErrNotFound)
	}
	return timer, nil
}

func (s *timerService) ListActiveTimers(ctx context.Context, userID string) ([]*domain.Timer, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	timers, err := s.timerRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, storageErr("list active timers", err, ErrNotFound)
	}
	return timers, nil
}

func requireIDs(userID, timerID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	if strings.TrimSpace(timerID) == "" {
		return fmt.Errorf("%w: timer ID is required", ErrInvalidInput)
	}
	return nil
}

