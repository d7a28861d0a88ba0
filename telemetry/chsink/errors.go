package chsink

import "fmt"

// ErrInvalidConfig creates a configuration error.
func ErrInvalidConfig(reason string) error {
	return fmt.Errorf("chsink: invalid config: %s", reason)
}

// ErrConnection creates an error for a failed ClickHouse connection.
func ErrConnection(err error) error {
	return fmt.Errorf("chsink: failed to connect to clickhouse: %w", err)
}

// ErrInsert creates an error for a failed batch insert.
func ErrInsert(table string, err error) error {
	return fmt.Errorf("chsink: failed to insert into %s: %w", table, err)
}
