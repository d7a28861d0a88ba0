package router

import (
	"fmt"
	"time"
)

// ErrNoSources is returned when the router has no candidates at all
var ErrNoSources = fmt.Errorf("router: no sources registered")

// ErrDuplicateSource returns an error for a source registered twice
func ErrDuplicateSource(id string) error {
	return fmt.Errorf("router: duplicate source %q", id)
}

// ErrInvalidThreshold returns an error for an invalid streak threshold
func ErrInvalidThreshold(field string, v int) error {
	return fmt.Errorf("router: invalid %s: %d (must be >= 1)", field, v)
}

// ErrInvalidAlpha returns an error for an invalid EWMA weight
func ErrInvalidAlpha(alpha float64) error {
	return fmt.Errorf("router: invalid alpha: %f (must be in (0, 1])", alpha)
}

// ErrInvalidLatencyTarget returns an error for an invalid latency target
func ErrInvalidLatencyTarget(d time.Duration) error {
	return fmt.Errorf("router: invalid latency target: %v (must be >= 0)", d)
}
