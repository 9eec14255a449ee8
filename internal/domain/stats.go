package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	StatsPeriodCustom = "CUSTOM"
	StatsPeriodAll    = "ALL"
)

// StatsFilter selects the entries that feed a TimesheetStats.
// Nil fields impose no constraint.
type StatsFilter struct {
	UserID    *string
	CaseID    *string
	StartDate *time.Time
	EndDate   *time.Time
}

// Matches reports whether e is a live entry selected by the filter.
// Both date bounds are inclusive and compare against the entry start.
func (f StatsFilter) Matches(e *TimesheetEntry) bool {
	if e.IsDeleted {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.CaseID != nil && (e.CaseID == nil || *e.CaseID != *f.CaseID) {
		return false
	}
	if f.StartDate != nil && e.StartTime.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.StartTime.After(*f.EndDate) {
		return false
	}
	return true
}

// TimesheetStats is recomputed on demand and never stored as a primary record
type TimesheetStats struct {
	ID                   string             `json:"id"`
	UserID               *string            `json:"userId,omitempty"`
	CaseID               *string            `json:"caseId,omitempty"`
	StartDate            *time.Time         `json:"startDate,omitempty"`
	EndDate              *time.Time         `json:"endDate,omitempty"`
	Period               string             `json:"period"`
	PeriodValue          string             `json:"periodValue"`
	TotalHours           float64            `json:"totalHours"`
	TotalMinutes         int64              `json:"totalMinutes"`
	TotalSeconds         int64              `json:"totalSeconds"`
	DailyHours           float64            `json:"dailyHours"`
	WeeklyHours          float64            `json:"weeklyHours"`
	MonthlyHours         float64            `json:"monthlyHours"`
	CaseHours            map[string]float64 `json:"caseHours"`
	TaskHours            map[string]float64 `json:"taskHours"`
	AverageSessionLength float64            `json:"averageSessionLength"`
	TotalSessions        int                `json:"totalSessions"`
	GeneratedAt          time.Time          `json:"generatedAt"`
}

// Windows are the fixed reporting periods anchored at an instant
type Windows struct {
	DayStart   time.Time
	WeekStart  time.Time // Sunday
	MonthStart time.Time
}

// WindowsAt returns the day, week and month windows containing now, using
// now's location for the midnight boundaries
func WindowsAt(now time.Time) Windows {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Windows{
		DayStart:   day,
		WeekStart:  day.AddDate(0, 0, -int(day.Weekday())),
		MonthStart: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
	}
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// Aggregate computes statistics over the entries selected by filter
func Aggregate(filter StatsFilter, entries []*TimesheetEntry, now time.Time) *TimesheetStats {
	w := WindowsAt(now)
	dayEnd := w.DayStart.AddDate(0, 0, 1)
	weekEnd := w.WeekStart.AddDate(0, 0, 7)
	monthEnd := w.MonthStart.AddDate(0, 1, 0)

	var totalMinutes, dailyMinutes, weeklyMinutes, monthlyMinutes int64
	caseMinutes := make(map[string]int64)
	taskMinutes := make(map[string]int64)
	count := 0

	for _, e := range entries {
		if !filter.Matches(e) {
			continue
		}
		count++
		totalMinutes += e.DurationMinutes

		start := e.StartTime.In(now.Location())
		if within(start, w.DayStart, dayEnd) {
			dailyMinutes += e.DurationMinutes
		}
		if within(start, w.WeekStart, weekEnd) {
			weeklyMinutes += e.DurationMinutes
		}
		if within(start, w.MonthStart, monthEnd) {
			monthlyMinutes += e.DurationMinutes
		}

		if e.CaseID != nil {
			caseMinutes[*e.CaseID] += e.DurationMinutes
		}
		if e.TaskID != nil {
			taskMinutes[*e.TaskID] += e.DurationMinutes
		}
	}

	totalHours := float64(totalMinutes) / 60
	average := 0.0
	if count > 0 {
		average = totalHours / float64(count)
	}

	period, periodValue := StatsPeriodAll, "all"
	if filter.StartDate != nil || filter.EndDate != nil {
		period = StatsPeriodCustom
		periodValue = fmt.Sprintf("%s_%s", formatBound(filter.StartDate), formatBound(filter.EndDate))
	}

	return &TimesheetStats{
		ID:                   fmt.Sprintf("stats_%s_%s_%s", refOrAll(filter.UserID), refOrAll(filter.CaseID), period),
		UserID:               copyRef(filter.UserID),
		CaseID:               copyRef(filter.CaseID),
		StartDate:            filter.StartDate,
		EndDate:              filter.EndDate,
		Period:               period,
		PeriodValue:          periodValue,
		TotalHours:           RoundHours(totalHours),
		TotalMinutes:         totalMinutes,
		TotalSeconds:         totalMinutes * 60,
		DailyHours:           RoundHours(float64(dailyMinutes) / 60),
		WeeklyHours:          RoundHours(float64(weeklyMinutes) / 60),
		MonthlyHours:         RoundHours(float64(monthlyMinutes) / 60),
		CaseHours:            minutesToHours(caseMinutes),
		TaskHours:            minutesToHours(taskMinutes),
		AverageSessionLength: RoundHours(average),
		TotalSessions:        count,
		GeneratedAt:          now,
	}
}

// RoundHours rounds an hour figure to 2 decimal places
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

func minutesToHours(m map[string]int64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = RoundHours(float64(v) / 60)
	}
	return out
}

func refOrAll(ref *string) string {
	if ref == nil || *ref == "" {
		return "all"
	}
	return *ref
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.Format(time.RFC3339)
}
