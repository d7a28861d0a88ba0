package fund

import (
	"errors"
	"fmt"
)

// ErrMissingCode is returned when a record has no fund code.
var ErrMissingCode = errors.New("fund: record has no code")

// ErrParse creates an error for an undecodable fund payload.
func ErrParse(shape string, err error) error {
	return fmt.Errorf("fund: failed to parse %s payload: %w", shape, err)
}
