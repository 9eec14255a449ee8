package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditStartTimer        AuditAction = "START_TIMER"
	AuditPauseTimer        AuditAction = "PAUSE_TIMER"
	AuditResumeTimer       AuditAction = "RESUME_TIMER"
	AuditStopTimer         AuditAction = "STOP_TIMER"
	AuditSupersedeTimer    AuditAction = "SUPERSEDE_TIMER"
	AuditCreateEntry       AuditAction = "CREATE_TIMESHEET_ENTRY"
	AuditDeleteEntry       AuditAction = "DELETE_TIMESHEET_ENTRY"
	AuditGetTimesheetStats AuditAction = "GET_TIMESHEET_STATS"
)

// AuditEvent records one successful operation
type AuditEvent struct {
	ID        string
	Action    AuditAction
	Resource  string
	UserID    string
	Details   map[string]any
	Timestamp time.Time
}

// NewAuditEvent creates an audit record for action on resource
func NewAuditEvent(action AuditAction, resource, userID string, details map[string]any, at time.Time) *AuditEvent {
	if details == nil {
		details = map[string]any{}
	}
	return &AuditEvent{
		ID:        uuid.NewString(),
		Action:    action,
		Resource:  resource,
		UserID:    userID,
		Details:   details,
		Timestamp: at,
	}
}

// TimerResource returns the audit resource name of a timer
func TimerResource(id string) string {
	return "TIMER#" + id
}

// EntryResource returns the audit resource name of a timesheet entry
func EntryResource(id string) string {
	return "TIMESHEET_ENTRY#" + id
}
