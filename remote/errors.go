package remote

import (
	"errors"
	"fmt"
)

// ErrNetwork marks transport-level failures. Callers test with errors.Is
// to distinguish unreachable sources from application errors.
var ErrNetwork = errors.New("remote: network failure")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: unexpected status %d from %s", e.Code, e.URL)
}

// ErrUnreachable wraps a transport error so it matches ErrNetwork.
func ErrUnreachable(err error) error {
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// ErrDecodeResponse creates an error for an undecodable response body.
func ErrDecodeResponse(entityType string, err error) error {
	return fmt.Errorf("remote: failed to decode %s response: %w", entityType, err)
}

// ErrInvalidConfig creates a configuration error.
func ErrInvalidConfig(reason string) error {
	return fmt.Errorf("remote: invalid config: %s", reason)
}
