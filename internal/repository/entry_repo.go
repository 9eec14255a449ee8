package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andy/timekeeper/internal/db"
	"github.com/andy/timekeeper/internal/domain"
)

const entryColumns = `id, user_id, case_id, task_id, timer_id, description, category, start_time, end_time,
	duration_minutes, billable, hourly_rate, total_amount, is_deleted, created_at, updated_at`

// EntryRepo is a SQLite implementation of EntryRepository
type EntryRepo struct {
	db *db.DB
}

// NewEntryRepo creates a new EntryRepo
func NewEntryRepo(database *db.DB) *EntryRepo {
	return &EntryRepo{db: database}
}

// Create inserts a new timesheet entry into the database
func (r *EntryRepo) Create(ctx context.Context, entry *domain.TimesheetEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid timesheet entry: %w", err)
	}
	return insertEntry(ctx, r.db, entry, false)
}

// GetByID retrieves a live timesheet entry owned by userID
func (r *EntryRepo) GetByID(ctx context.Context, userID, id string) (*domain.TimesheetEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM timesheet_entries
		WHERE id = ? AND user_id = ? AND is_deleted = 0
	`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("timesheet entry %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get timesheet entry: %w", err)
	}

	return entry, nil
}

// List retrieves entries matching filter, newest first
func (r *EntryRepo) List(ctx context.Context, filter EntryFilter) ([]*domain.TimesheetEntry, error) {
	query := "SELECT " + entryColumns + " FROM timesheet_entries WHERE 1=1"
	var args []interface{}

	if !filter.IncludeDeleted {
		query += " AND is_deleted = 0"
	}
	if filter.UserID != nil {
		query += " AND user_id = ?"
		args = append(args, *filter.UserID)
	}
	if filter.CaseID != nil {
		query += " AND case_id = ?"
		args = append(args, *filter.CaseID)
	}
	if filter.TaskID != nil {
		query += " AND task_id = ?"
		args = append(args, *filter.TaskID)
	}
	if filter.StartDate != nil {
		query += " AND start_time >= ?"
		args = append(args, formatTime(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query += " AND start_time <= ?"
		args = append(args, formatTime(*filter.EndDate))
	}

	query += " ORDER BY start_time DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheet entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TimesheetEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timesheet entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timesheet entries: %w", err)
	}

	return entries, nil
}

// SoftDelete marks an entry as deleted
func (r *EntryRepo) SoftDelete(ctx context.Context, userID, id string, now time.Time) error {
	query := `
		UPDATE timesheet_entries
		SET is_deleted = 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND is_deleted = 0
	`

	result, err := r.db.ExecContext(ctx, query, formatTime(now), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete timesheet entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("timesheet entry %s: %w", id, ErrNotFound)
	}

	return nil
}

// insertEntry writes entry; with ignoreDuplicate an existing row with the
// same id or timer is left untouched
func insertEntry(ctx context.Context, ex execer, entry *domain.TimesheetEntry, ignoreDuplicate bool) error {
	verb := "INSERT"
	if ignoreDuplicate {
		verb = "INSERT OR IGNORE"
	}
	query := verb + ` INTO timesheet_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var rate interface{}
	if entry.HourlyRate != nil {
		rate = *entry.HourlyRate
	}

	_, err := ex.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		nullString(entry.CaseID),
		nullString(entry.TaskID),
		nullString(entry.TimerID),
		entry.Description,
		nullString(entry.Category),
		formatTime(entry.StartTime),
		formatTime(entry.EndTime),
		entry.DurationMinutes,
		entry.Billable,
		rate,
		entry.TotalAmount,
		entry.IsDeleted,
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("failed to create timesheet entry: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create timesheet entry: %w", err)
	}

	return nil
}

func scanEntry(row rowScanner) (*domain.TimesheetEntry, error) {
	entry := &domain.TimesheetEntry{}
	var caseID, taskID, timerID, category sql.NullString
	var rate sql.NullFloat64
	var startTime, endTime, createdAt, updatedAt string

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&caseID,
		&taskID,
		&timerID,
		&entry.Description,
		&category,
		&startTime,
		&endTime,
		&entry.DurationMinutes,
		&entry.Billable,
		&rate,
		&entry.TotalAmount,
		&entry.IsDeleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.CaseID = stringPtr(caseID)
	entry.TaskID = stringPtr(taskID)
	entry.TimerID = stringPtr(timerID)
	entry.Category = stringPtr(category)
	if rate.Valid {
		v := rate.Float64
		entry.HourlyRate = &v
	}

	for _, f := range []struct {
		name string
		src  string
		dst  *time.Time
	}{
		{"start_time", startTime, &entry.StartTime},
		{"end_time", endTime, &entry.EndTime},
		{"created_at", createdAt, &entry.CreatedAt},
		{"updated_at", updatedAt, &entry.UpdatedAt},
	} {
		t, err := parseTime(f.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.name, err)
		}
		*f.dst = t
	}

	return entry, nil
}
