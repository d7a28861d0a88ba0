package dedupe

import (
	"fmt"
	"time"
)

// ErrWaitTimeout is the sentinel matched by errors.Is when a subscriber's
// wait exceeds its deadline. It does not imply the underlying execution
// failed.
var ErrWaitTimeout = fmt.Errorf("dedupe: wait timed out")

// ErrTimeout wraps ErrWaitTimeout with the key and deadline
func ErrTimeout(key string, timeout time.Duration) error {
	return fmt.Errorf("dedupe: wait for %q exceeded %v: %w", key, timeout, ErrWaitTimeout)
}

// ErrInvalidTimeout returns an error for an invalid timeout
func ErrInvalidTimeout(timeout time.Duration) error {
	return fmt.Errorf("dedupe: invalid default timeout: %v (must be >= 0)", timeout)
}
