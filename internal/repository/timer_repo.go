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

const timerColumns = `id, user_id, case_id, task_id, status, description, start_time, paused_at,
	current_session_ms, total_paused_ms, total_ms, is_active, version, created_at, last_updated`

// TimerRepo is a SQLite implementation of TimerRepository
type TimerRepo struct {
	db *db.DB
}

// NewTimerRepo creates a new TimerRepo
func NewTimerRepo(database *db.DB) *TimerRepo {
	return &TimerRepo{db: database}
}

// StartExclusive supersedes the user's active timers and inserts timer as the new active one
func (r *TimerRepo) StartExclusive(ctx context.Context, timer *domain.Timer, now time.Time) ([]Superseded, error) {
	if err := timer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timer: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	active, err := queryTimers(ctx, tx,
		"SELECT "+timerColumns+" FROM timers WHERE user_id = ? AND is_active = 1", timer.UserID)
	if err != nil {
		return nil, err
	}

	superseded := make([]Superseded, 0, len(active))
	for _, old := range active {
		expect := old.Version
		dropped := old.Supersede(now)
		if err := updateTimer(ctx, tx, old, expect); err != nil {
			return nil, err
		}
		superseded = append(superseded, Superseded{Timer: old, Dropped: dropped})
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM active_timers WHERE user_id = ?", timer.UserID); err != nil {
		return nil, fmt.Errorf("failed to clear active slot: %w", err)
	}

	if timer.Version == 0 {
		timer.Version = 1
	}
	if err := insertTimer(ctx, tx, timer); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO active_timers (user_id, timer_id) VALUES (?, ?)", timer.UserID, timer.ID); err != nil {
		if isConstraintError(err) {
			return nil, fmt.Errorf("failed to claim active slot: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to claim active slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return superseded, nil
}

// Get retrieves a timer owned by userID
func (r *TimerRepo) Get(ctx context.Context, userID, timerID string) (*domain.Timer, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+timerColumns+" FROM timers WHERE id = ? AND user_id = ?", timerID, userID)

	timer, err := scanTimer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("timer %s: %w", timerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get timer: %w", err)
	}

	return timer, nil
}

// GetActive retrieves the timer holding the user's active slot, or returns nil if there is none
func (r *TimerRepo) GetActive(ctx context.Context, userID string) (*domain.Timer, error) {
	query := `
		SELECT ` + timerColumns + `
		FROM timers
		WHERE id = (SELECT timer_id FROM active_timers WHERE user_id = ?)
	`

	timer, err := scanTimer(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No active timer
		}
		return nil, fmt.Errorf("failed to get active timer: %w", err)
	}

	return timer, nil
}

// ListActive returns the user's running or paused timers
func (r *TimerRepo) ListActive(ctx context.Context, userID string) ([]*domain.Timer, error) {
	return queryTimers(ctx, r.db,
		"SELECT "+timerColumns+" FROM timers WHERE user_id = ? AND is_active = 1 ORDER BY created_at DESC", userID)
}

// Update writes timer conditionally on its stored version
func (r *TimerRepo) Update(ctx context.Context, timer *domain.Timer, expectVersion int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateTimer(ctx, tx, timer, expectVersion); err != nil {
		return err
	}
	if !timer.IsActive {
		if err := releaseSlot(ctx, tx, timer); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stop persists a stopped timer together with its materialized entry
func (r *TimerRepo) Stop(ctx context.Context, timer *domain.Timer, expectVersion int64, entry *domain.TimesheetEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateTimer(ctx, tx, timer, expectVersion); err != nil {
		return err
	}
	if err := releaseSlot(ctx, tx, timer); err != nil {
		return err
	}

	if entry != nil {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("invalid timesheet entry: %w", err)
		}
		if err := insertEntry(ctx, tx, entry, true); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func insertTimer(ctx context.Context, ex execer, timer *domain.Timer) error {
	query := `
		INSERT INTO timers (` + timerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := ex.ExecContext(ctx, query,
		timer.ID,
		timer.UserID,
		nullString(timer.CaseID),
		nullString(timer.TaskID),
		string(timer.Status),
		timer.Description,
		formatTime(timer.StartTime),
		formatNullTime(timer.PausedAt),
		timer.CurrentSessionMillis,
		timer.TotalPausedMillis,
		timer.TotalMillis,
		timer.IsActive,
		timer.Version,
		formatTime(timer.CreatedAt),
		formatTime(timer.LastUpdated),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("failed to create timer: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create timer: %w", err)
	}

	return nil
}

// updateTimer bumps the version on success; zero affected rows means another
// writer got there first
func updateTimer(ctx context.Context, ex execer, timer *domain.Timer, expectVersion int64) error {
	query := `
		UPDATE timers
		SET status = ?, description = ?, start_time = ?, paused_at = ?,
		    current_session_ms = ?, total_paused_ms = ?, total_ms = ?,
		    is_active = ?, version = ?, last_updated = ?
		WHERE id = ? AND user_id = ? AND version = ?
	`

	next := expectVersion + 1
	result, err := ex.ExecContext(ctx, query,
		string(timer.Status),
		timer.Description,
		formatTime(timer.StartTime),
		formatNullTime(timer.PausedAt),
		timer.CurrentSessionMillis,
		timer.TotalPausedMillis,
		timer.TotalMillis,
		timer.IsActive,
		next,
		formatTime(timer.LastUpdated),
		timer.ID,
		timer.UserID,
		expectVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update timer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("timer %s changed since version %d: %w", timer.ID, expectVersion, ErrConflict)
	}

	timer.Version = next
	return nil
}

func releaseSlot(ctx context.Context, ex execer, timer *domain.Timer) error {
	_, err := ex.ExecContext(ctx,
		"DELETE FROM active_timers WHERE user_id = ? AND timer_id = ?", timer.UserID, timer.ID)
	if err != nil {
		return fmt.Errorf("failed to release active slot: %w", err)
	}
	return nil
}

func queryTimers(ctx context.Context, ex execer, query string, args ...interface{}) ([]*domain.Timer, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query timers: %w", err)
	}
	defer rows.Close()

	var timers []*domain.Timer
	for rows.Next() {
		timer, err := scanTimer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timer: %w", err)
		}
		timers = append(timers, timer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timers: %w", err)
	}

	return timers, nil
}

func scanTimer(row rowScanner) (*domain.Timer, error) {
	timer := &domain.Timer{}
	var caseID, taskID, pausedAt sql.NullString
	var status, startTime, createdAt, lastUpdated string

	err := row.Scan(
		&timer.ID,
		&timer.UserID,
		&caseID,
		&taskID,
		&status,
		&timer.Description,
		&startTime,
		&pausedAt,
		&timer.CurrentSessionMillis,
		&timer.TotalPausedMillis,
		&timer.TotalMillis,
		&timer.IsActive,
		&timer.Version,
		&createdAt,
		&lastUpdated,
	)
	if err != nil {
		return nil, err
	}

	timer.CaseID = stringPtr(caseID)
	timer.TaskID = stringPtr(taskID)
	timer.Status = domain.TimerStatus(status)

	if timer.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if timer.PausedAt, err = parseNullTime(pausedAt); err != nil {
		return nil, fmt.Errorf("failed to parse paused_at: %w", err)
	}
	if timer.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if timer.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, fmt.Errorf("failed to parse last_updated: %w", err)
	}

	return timer, nil
}
