package service

import (
	"errors"
	"fmt"

	"github.com/andy/timekeeper/internal/repository"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidState   = errors.New("invalid state")
	ErrNotFound       = errors.New("not found")
	ErrStorageFailure = errors.New("storage failure")
)

// storageErr classifies a repository error. Lost conditional writes become
// ErrInvalidState; missing records become notFound.
func storageErr(op string, err error, notFound error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", notFound, op)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s: concurrent update", ErrInvalidState, op)
	default:
		return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
	}
}
