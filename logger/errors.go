package logger

import "fmt"

// ErrBuildLogger creates an error for a zap core that could not be built.
func ErrBuildLogger(err error) error {
	return fmt.Errorf("logger: failed to build zap core: %w", err)
}

// ErrInvalidLevel creates an error for an unrecognized log level.
func ErrInvalidLevel(level string, err error) error {
	return fmt.Errorf("logger: unknown level %q: %w", level, err)
}

// ErrInvalidEncoding creates an error for an unsupported encoding.
func ErrInvalidEncoding(encoding string) error {
	return fmt.Errorf("logger: unsupported encoding %q (json or console)", encoding)
}
