// Package boltrepo stores timers, entries and the audit trail in a BoltDB file
package boltrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/andy/timekeeper/internal/repository"
)

var (
	timersBucket  = []byte("timers")
	activeBucket  = []byte("active")
	entriesBucket = []byte("entries")
	auditBucket   = []byte("audit")
)

var errLocked = errors.New("database is locked by another timekeeper process")

// keyLayout gives audit keys a fixed width so byte order is time order
const keyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open creates or opens the database at path and ensures its buckets exist
func Open(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	var fileMode fs.FileMode = 0o600
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errLocked
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{timersBucket, activeBucket, entriesBucket, auditBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return db, nil
}

// NewStore opens path and wires the bolt repositories over it
func NewStore(path string) (*repository.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}

	return &repository.Store{
		Timers:  NewTimerRepo(db),
		Entries: NewEntryRepo(db),
		Audit:   NewAuditRepo(db),
		Close:   db.Close,
	}, nil
}

func put(b *bolt.Bucket, key string, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), value)
}
