package redisstore

import "fmt"

// ErrConnection wraps a redis connection failure
func ErrConnection(err error) error {
	return fmt.Errorf("redisstore: connection failed: %w", err)
}

// ErrInvalidAddr returns an error for an invalid address
func ErrInvalidAddr(addr string) error {
	return fmt.Errorf("redisstore: invalid addr: %q (must be non-empty)", addr)
}

// ErrInvalidDB returns an error for an invalid database index
func ErrInvalidDB(db int) error {
	return fmt.Errorf("redisstore: invalid db: %d (must be >= 0)", db)
}
