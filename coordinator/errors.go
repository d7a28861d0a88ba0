package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a fetch exceeds its wait budget and no
	// stale copy is available.
	ErrTimeout = errors.New("coordinator: request timed out")

	// ErrNetwork is returned when every source attempt failed at the
	// transport level and no stale copy is available.
	ErrNetwork = errors.New("coordinator: network failure")

	// ErrConflict is returned when local and remote copies diverge and the
	// configured strategy cannot resolve them.
	ErrConflict = errors.New("coordinator: version conflict")

	// ErrCacheCorruption is returned when a cached value cannot be decoded.
	ErrCacheCorruption = errors.New("coordinator: cache corruption")

	// ErrInvalidTimeout is returned when the default timeout is not positive.
	ErrInvalidTimeout = errors.New("coordinator: default timeout must be positive")

	// ErrInvalidTTL is returned when the default TTL is not positive.
	ErrInvalidTTL = errors.New("coordinator: default ttl must be positive")

	// ErrNoSources is returned when no remote sources are configured.
	ErrNoSources = errors.New("coordinator: at least one source is required")
)

// ErrMissingDependency creates an error for a nil required dependency.
func ErrMissingDependency(name string) error {
	return fmt.Errorf("coordinator: missing dependency: %s", name)
}

// ErrEmptyEntityType is returned when a request names no entity type.
var ErrEmptyEntityType = errors.New("coordinator: entity type is required")

// ErrDecodeResult creates an error for a result body that does not match
// the requested shape.
func ErrDecodeResult(entityType string, err error) error {
	return fmt.Errorf("coordinator: failed to decode %s result: %w", entityType, err)
}
