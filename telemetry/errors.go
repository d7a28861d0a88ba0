package telemetry

import "errors"

var (
	// ErrInvalidFlushSize is returned when the flush size is not positive.
	ErrInvalidFlushSize = errors.New("telemetry: flush size must be positive")

	// ErrInvalidFlushInterval is returned when the flush interval is not positive.
	ErrInvalidFlushInterval = errors.New("telemetry: flush interval must be positive")

	// ErrInvalidWriteTimeout is returned when the write timeout is not positive.
	ErrInvalidWriteTimeout = errors.New("telemetry: write timeout must be positive")
)
