package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andy/timekeeper/internal/db"
	"github.com/andy/timekeeper/internal/domain"
)

// AuditRepo is a SQLite implementation of AuditRepository
type AuditRepo struct {
	db *db.DB
}

// NewAuditRepo creates a new AuditRepo
func NewAuditRepo(database *db.DB) *AuditRepo {
	return &AuditRepo{db: database}
}

// Record appends an audit event
func (r *AuditRepo) Record(ctx context.Context, event *domain.AuditEvent) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, action, resource, user_id, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		event.Resource,
		event.UserID,
		string(details),
		formatTime(event.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// List returns the most recent audit events, newest first
func (r *AuditRepo) List(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	query := `
		SELECT id, action, resource, user_id, details, timestamp
		FROM audit_log
		ORDER BY timestamp DESC, id
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		event := &domain.AuditEvent{}
		var action, details, timestamp string
		if err := rows.Scan(&event.ID, &action, &event.Resource, &event.UserID, &details, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		event.Action = domain.AuditAction(action)
		if err := json.Unmarshal([]byte(details), &event.Details); err != nil {
			return nil, fmt.Errorf("failed to decode audit details: %w", err)
		}
		if event.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}
