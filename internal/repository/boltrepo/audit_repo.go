package boltrepo

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/andy/timekeeper/internal/domain"
)

// AuditRepo is a BoltDB implementation of repository.AuditRepository.
// Keys are the UTC timestamp followed by the event id.
type AuditRepo struct {
	db *bolt.DB
}

// NewAuditRepo creates an AuditRepo over an open database
func NewAuditRepo(db *bolt.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Record(ctx context.Context, event *domain.AuditEvent) error {
	key := event.Timestamp.UTC().Format(keyLayout) + "#" + event.ID

	err := r.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(auditBucket), key, event)
	})
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// List returns up to limit events, newest first. A limit of 0 returns all.
func (r *AuditRepo) List(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	var events []*domain.AuditEvent

	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(auditBucket).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var event domain.AuditEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return fmt.Errorf("failed to decode audit event %s: %w", k, err)
			}
			events = append(events, &event)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	return events, nil
}
