package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andy/timekeeper/internal/clock"
	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
)

// EntryService manages timesheet entries recorded outside a timer
type EntryService interface {
	// CreateEntry records a manual entry
	CreateEntry(ctx context.Context, in domain.ManualEntryInput) (*domain.TimesheetEntry, error)
	GetEntry(ctx context.Context, userID, id string) (*domain.TimesheetEntry, error)
	// ListEntries returns matching entries, newest first
	ListEntries(ctx context.Context, filter repository.EntryFilter) ([]*domain.TimesheetEntry, error)
	// DeleteEntry soft-deletes an entry
	DeleteEntry(ctx context.Context, userID, id string) error
}

type entryService struct {
	entryRepo   repository.EntryRepository
	clock       clock.Clock
	defaultRate *float64
	audit       auditor
	log         *slog.Logger
}

// NewEntryService creates a new entry service. defaultRate applies to manual
// entries created without a rate and may be nil.
func NewEntryService(
	entryRepo repository.EntryRepository,
	sink AuditSink,
	clk clock.Clock,
	defaultRate *float64,
	log *slog.Logger,
) EntryService {
	if log == nil {
		log = slog.Default()
	}
	return &entryService{
		entryRepo:   entryRepo,
		clock:       clk,
		defaultRate: defaultRate,
		audit:       auditor{sink: sink, log: log},
		log:         log,
	}
}

func (s *entryService) CreateEntry(ctx context.Context, in domain.ManualEntryInput) (*domain.TimesheetEntry, error) {
	if in.HourlyRate == nil {
		in.HourlyRate = s.defaultRate
	}

	now := s.clock.Now()
	entry := domain.NewManualEntry(in, now)
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, storageErr("create entry", err, ErrNotFound)
	}

	s.log.InfoContext(ctx, "timesheet entry created", "user_id", entry.UserID, "entry_id", entry.ID)
	s.audit.record(ctx, domain.AuditCreateEntry, domain.EntryResource(entry.ID), entry.UserID, entryDetails(entry), now)

	return entry, nil
}

func (s *entryService) GetEntry(ctx context.Context, userID, id string) (*domain.TimesheetEntry, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: user ID and entry ID are required", ErrInvalidInput)
	}
	entry, err := s.entryRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, storageErr("get entry", err, ErrNotFound)
	}
	return entry, nil
}

func (s *entryService) ListEntries(ctx context.Context, filter repository.EntryFilter) ([]*domain.TimesheetEntry, error) {
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: limit cannot be negative", ErrInvalidInput)
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	entries, err := s.entryRepo.List(ctx, filter)
	if err != nil {
		return nil, storageErr("list entries", err, ErrNotFound)
	}
	return entries, nil
}

func (s *entryService) DeleteEntry(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: user ID and entry ID are required", ErrInvalidInput)
	}

	now := s.clock.Now()
	if err := s.entryRepo.SoftDelete(ctx, userID, id, now); err != nil {
		return storageErr("delete entry", err, ErrNotFound)
	}

	s.log.InfoContext(ctx, "timesheet entry deleted", "user_id", userID, "entry_id", id)
	s.audit.record(ctx, domain.AuditDeleteEntry, domain.EntryResource(id), userID, nil, now)

	return nil
}

func entryDetails(e *domain.TimesheetEntry) map[string]any {
	details := map[string]any{
		"durationMinutes": e.DurationMinutes,
		"totalAmount":     e.TotalAmount,
		"billable":        e.Billable,
	}
	if e.CaseID != nil {
		details["caseId"] = *e.CaseID
	}
	if e.TimerID != nil {
		details["timerId"] = *e.TimerID
	}
	return details
}
