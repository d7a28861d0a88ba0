package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned when the pull interval is not positive.
	ErrInvalidInterval = errors.New("syncer: interval must be positive")

	// ErrNoEntityTypes is returned when no entity types are configured.
	ErrNoEntityTypes = errors.New("syncer: at least one entity type is required")

	// ErrEmptyQueuePrefix is returned when the queue prefix is empty.
	ErrEmptyQueuePrefix = errors.New("syncer: queue prefix must not be empty")

	// ErrClosed is returned when operating on a stopped manager.
	ErrClosed = errors.New("syncer: manager is closed")
)

// ErrPersistOp creates an error for an offline write that could not be
// written to the kv store.
func ErrPersistOp(key string, err error) error {
	return fmt.Errorf("syncer: failed to persist offline write %s: %w", key, err)
}

// ErrReplay creates an error for an offline write that could not be replayed.
func ErrReplay(key string, err error) error {
	return fmt.Errorf("syncer: failed to replay offline write %s: %w", key, err)
}
