package kafkasink

import "fmt"

// ErrInvalidConfig creates a configuration error.
func ErrInvalidConfig(reason string) error {
	return fmt.Errorf("kafkasink: invalid config: %s", reason)
}

// ErrProducer creates an error for a failed produce or producer setup.
func ErrProducer(err error) error {
	return fmt.Errorf("kafkasink: producer failure: %w", err)
}

// ErrEncode creates an error for an event that could not be serialized.
func ErrEncode(err error) error {
	return fmt.Errorf("kafkasink: failed to encode event: %w", err)
}
