package gormstore

import "fmt"

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("gormstore: invalid config: %s", msg)
}

// ErrConnection database connection error
func ErrConnection(err error) error {
	return fmt.Errorf("gormstore: connection failed: %w", err)
}

// ErrMigration schema migration error
func ErrMigration(err error) error {
	return fmt.Errorf("gormstore: migration failed: %w", err)
}
