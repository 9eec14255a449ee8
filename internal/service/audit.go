package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/andy/timekeeper/internal/domain"
)

// AuditSink receives an event for every successful operation
type AuditSink interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
}

// auditor records events without ever failing the operation that produced them
type auditor struct {
	sink AuditSink
	log  *slog.Logger
}

func (a auditor) record(ctx context.Context, action domain.AuditAction, resource, userID string, details map[string]any, at time.Time) {
	if a.sink == nil {
		return
	}
	event := domain.NewAuditEvent(action, resource, userID, details, at)
	if err := a.sink.Record(ctx, event); err != nil {
		a.log.WarnContext(ctx, "failed to record audit event",
			"action", string(action),
			"resource", resource,
			"error", err,
		)
	}
}

// timerDetails are the audit details shared by the timer operations
func timerDetails(t *domain.Timer) map[string]any {
	details := map[string]any{
		"status":      string(t.Status),
		"totalMillis": t.TotalMillis,
	}
	if t.CaseID != nil {
		details["caseId"] = *t.CaseID
	}
	if t.TaskID != nil {
		details["taskId"] = *t.TaskID
	}
	return details
}
