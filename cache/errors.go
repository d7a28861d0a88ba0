package cache

import (
	"fmt"
	"time"
)

// ErrCorruption is the sentinel matched by errors.Is for entries that fail
// to deserialize from the persistent tier.
var ErrCorruption = fmt.Errorf("cache: corrupted entry")

// ErrCorruptedEntry wraps ErrCorruption with the offending key
func ErrCorruptedEntry(key string, err error) error {
	return fmt.Errorf("cache: entry %q failed to decode: %v: %w", key, err, ErrCorruption)
}

// ErrEncode wraps a serialization failure on put
func ErrEncode(key string, err error) error {
	return fmt.Errorf("cache: failed to encode entry %q: %w", key, err)
}

// ErrTypeMismatch is returned when an L1 entry does not hold the type the
// call site requested
func ErrTypeMismatch(key string) error {
	return fmt.Errorf("cache: entry %q holds a different type than requested", key)
}

// ErrInvalidMaxSize returns an error for an invalid capacity
func ErrInvalidMaxSize(size int) error {
	return fmt.Errorf("cache: invalid max size: %d (must be >= 1)", size)
}

// ErrInvalidSweepInterval returns an error for an invalid sweep interval
func ErrInvalidSweepInterval(interval time.Duration) error {
	return fmt.Errorf("cache: invalid sweep interval: %v (must be >= 0)", interval)
}
