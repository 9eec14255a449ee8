package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/andy/timekeeper/internal/clock"
	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
)

// StatsService computes timesheet statistics on demand
type StatsService interface {
	GetTimesheetStats(ctx context.Context, filter domain.StatsFilter) (*domain.TimesheetStats, error)
}

type statsService struct {
	entryRepo repository.EntryRepository
	clock     clock.Clock
	location  *time.Location
	audit     auditor
	log       *slog.Logger
}

// NewStatsService creates a new stats service. The day, week and month
// windows are computed in loc; nil means UTC.
func NewStatsService(
	entryRepo repository.EntryRepository,
	sink AuditSink,
	clk clock.Clock,
	loc *time.Location,
	log *slog.Logger,
) StatsService {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &statsService{
		entryRepo: entryRepo,
		clock:     clk,
		location:  loc,
		audit:     auditor{sink: sink, log: log},
		log:       log,
	}
}

func (s *statsService) GetTimesheetStats(ctx context.Context, filter domain.StatsFilter) (*domain.TimesheetStats, error) {
	entries, err := s.entryRepo.List(ctx, repository.EntryFilter{
		UserID:    filter.UserID,
		CaseID:    filter.CaseID,
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
	})
	if err != nil {
		return nil, storageErr("list entries", err, ErrNotFound)
	}

	now := s.clock.Now()
	stats := domain.Aggregate(filter, entries, now.In(s.location))

	userID := ""
	if filter.UserID != nil {
		userID = *filter.UserID
	}
	s.log.InfoContext(ctx, "timesheet stats generated", "stats_id", stats.ID, "sessions", stats.TotalSessions)
	s.audit.record(ctx, domain.AuditGetTimesheetStats, stats.ID, userID, map[string]any{
		"totalSessions": stats.TotalSessions,
		"totalHours":    stats.TotalHours,
		"period":        stats.Period,
	}, now)

	return stats, nil
}
