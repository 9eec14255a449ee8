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

// TimerRepo is a BoltDB implementation of repository.TimerRepository.
// Every method runs in a single bolt transaction; bolt serializes writers.
type TimerRepo struct {
	db *bolt.DB
}

// NewTimerRepo creates a TimerRepo over an open database
func NewTimerRepo(db *bolt.DB) *TimerRepo {
	return &TimerRepo{db: db}
}

func (r *TimerRepo) StartExclusive(ctx context.Context, timer *domain.Timer, now time.Time) ([]repository.Superseded, error) {
	if err := timer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timer: %w", err)
	}

	var superseded []repository.Superseded
	err := r.db.Update(func(tx *bolt.Tx) error {
		timers := tx.Bucket(timersBucket)
		if timers.Get([]byte(timer.ID)) != nil {
			return fmt.Errorf("timer %s exists: %w", timer.ID, repository.ErrConflict)
		}

		active, err := activeOf(timers, timer.UserID)
		if err != nil {
			return err
		}
		for _, old := range active {
			dropped := old.Supersede(now)
			old.Version++
			if err := put(timers, old.ID, old); err != nil {
				return err
			}
			superseded = append(superseded, repository.Superseded{Timer: old, Dropped: dropped})
		}

		if timer.Version == 0 {
			timer.Version = 1
		}
		if err := put(timers, timer.ID, timer); err != nil {
			return err
		}
		return tx.Bucket(activeBucket).Put([]byte(timer.UserID), []byte(timer.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}

	return superseded, nil
}

func (r *TimerRepo) Get(ctx context.Context, userID, timerID string) (*domain.Timer, error) {
	var timer *domain.Timer
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		timer, err = getTimer(tx.Bucket(timersBucket), userID, timerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return timer, nil
}

func (r *TimerRepo) GetActive(ctx context.Context, userID string) (*domain.Timer, error) {
	var timer *domain.Timer
	err := r.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(activeBucket).Get([]byte(userID))
		if id == nil {
			return nil
		}
		var err error
		timer, err = getTimer(tx.Bucket(timersBucket), userID, string(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get active timer: %w", err)
	}
	return timer, nil
}

func (r *TimerRepo) ListActive(ctx context.Context, userID string) ([]*domain.Timer, error) {
	var timers []*domain.Timer
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		timers, err = activeOf(tx.Bucket(timersBucket), userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active timers: %w", err)
	}

	sort.Slice(timers, func(i, j int) bool {
		return timers[i].CreatedAt.After(timers[j].CreatedAt)
	})
	return timers, nil
}

func (r *TimerRepo) Update(ctx context.Context, timer *domain.Timer, expectVersion int64) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if err := writeTimer(tx, timer, expectVersion); err != nil {
			return err
		}
		if !timer.IsActive {
			return releaseSlot(tx, timer)
		}
		return nil
	})
}

func (r *TimerRepo) Stop(ctx context.Context, timer *domain.Timer, expectVersion int64, entry *domain.TimesheetEntry) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if err := writeTimer(tx, timer, expectVersion); err != nil {
			return err
		}
		if err := releaseSlot(tx, timer); err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("invalid timesheet entry: %w", err)
		}

		entries := tx.Bucket(entriesBucket)
		if entries.Get([]byte(entry.ID)) != nil {
			// already materialized
			return nil
		}
		return put(entries, entry.ID, entry)
	})
}

// writeTimer stores timer if the stored copy is still at expectVersion
func writeTimer(tx *bolt.Tx, timer *domain.Timer, expectVersion int64) error {
	timers := tx.Bucket(timersBucket)
	stored, err := getTimer(timers, timer.UserID, timer.ID)
	if err != nil {
		return err
	}
	if stored.Version != expectVersion {
		return fmt.Errorf("timer %s changed since version %d: %w", timer.ID, expectVersion, repository.ErrConflict)
	}

	timer.Version = expectVersion + 1
	if err := put(timers, timer.ID, timer); err != nil {
		timer.Version = expectVersion
		return fmt.Errorf("failed to update timer: %w", err)
	}
	return nil
}

func releaseSlot(tx *bolt.Tx, timer *domain.Timer) error {
	active := tx.Bucket(activeBucket)
	if string(active.Get([]byte(timer.UserID))) != timer.ID {
		return nil
	}
	return active.Delete([]byte(timer.UserID))
}

func getTimer(b *bolt.Bucket, userID, timerID string) (*domain.Timer, error) {
	v := b.Get([]byte(timerID))
	if v == nil {
		return nil, fmt.Errorf("timer %s: %w", timerID, repository.ErrNotFound)
	}

	var timer domain.Timer
	if err := json.Unmarshal(v, &timer); err != nil {
		return nil, fmt.Errorf("failed to decode timer: %w", err)
	}
	if timer.UserID != userID {
		return nil, fmt.Errorf("timer %s: %w", timerID, repository.ErrNotFound)
	}
	return &timer, nil
}

func activeOf(b *bolt.Bucket, userID string) ([]*domain.Timer, error) {
	var active []*domain.Timer
	err := b.ForEach(func(k, v []byte) error {
		var timer domain.Timer
		if err := json.Unmarshal(v, &timer); err != nil {
			return fmt.Errorf("failed to decode timer %s: %w", k, err)
		}
		if timer.UserID == userID && timer.IsActive {
			active = append(active, &timer)
		}
		return nil
	})
	return active, err
}
