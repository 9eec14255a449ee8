package boltrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
)

// EntryRepo is a BoltDB implementation of repository.EntryRepository
type EntryRepo struct {
	db *bolt.DB
}

// NewEntryRepo creates an EntryRepo over an open database
func NewEntryRepo(db *bolt.DB) *EntryRepo {
	return &EntryRepo{db: db}
}

func (r *EntryRepo) Create(ctx context.Context, entry *domain.TimesheetEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid timesheet entry: %w", err)
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		if b.Get([]byte(entry.ID)) != nil {
			return fmt.Errorf("timesheet entry %s exists: %w", entry.ID, repository.ErrConflict)
		}
		return put(b, entry.ID, entry)
	})
}

func (r *EntryRepo) GetByID(ctx context.Context, userID, id string) (*domain.TimesheetEntry, error) {
	var entry *domain.TimesheetEntry
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		entry, err = getEntry(tx.Bucket(entriesBucket), userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List scans every entry; bolt has no secondary indexes
func (r *EntryRepo) List(ctx context.Context, filter repository.EntryFilter) ([]*domain.TimesheetEntry, error) {
	var entries []*domain.TimesheetEntry
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(k, v []byte) error {
			var entry domain.TimesheetEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to decode timesheet entry %s: %w", k, err)
			}
			if filter.MatchesEntry(&entry) {
				entries = append(entries, &entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheet entries: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].StartTime.Equal(entries[j].StartTime) {
			return entries[i].StartTime.After(entries[j].StartTime)
		}
		return entries[i].ID < entries[j].ID
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}

	return entries, nil
}

func (r *EntryRepo) SoftDelete(ctx context.Context, userID, id string, now time.Time) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		entry, err := getEntry(b, userID, id)
		if err != nil {
			return err
		}
		entry.IsDeleted = true
		entry.UpdatedAt = now
		return put(b, entry.ID, entry)
	})
}

func getEntry(b *bolt.Bucket, userID, id string) (*domain.TimesheetEntry, error) {
	v := b.Get([]byte(id))
	if v == nil {
		return nil, fmt.Errorf("timesheet entry %s: %w", id, repository.ErrNotFound)
	}

	var entry domain.TimesheetEntry
	if err := json.Unmarshal(v, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode timesheet entry: %w", err)
	}
	if entry.UserID != userID || entry.IsDeleted {
		return nil, fmt.Errorf("timesheet entry %s: %w", id, repository.ErrNotFound)
	}
	return &entry, nil
}
