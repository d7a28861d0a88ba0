package kv

import "fmt"

var (
	// ErrNotFound is returned when a key is absent or expired
	ErrNotFound = fmt.Errorf("kv: key not found")

	// ErrStoreClosed is returned when operations are attempted on a closed store
	ErrStoreClosed = fmt.Errorf("kv: store is closed")
)

// ErrBackend wraps a backend failure
func ErrBackend(err error) error {
	return fmt.Errorf("kv: backend error: %w", err)
}
