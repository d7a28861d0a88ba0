package cron

import (
	"errors"
	"fmt"
)

// ErrNoTasks is returned when a chain is added without tasks.
var ErrNoTasks = errors.New("cron: no tasks provided")

// ErrAddChain creates an error for a chain that could not be scheduled.
func ErrAddChain(name, spec string, err error) error {
	return fmt.Errorf("cron: failed to schedule chain %s with spec %q: %w", name, spec, err)
}

// ErrTaskPanic creates an error for a recovered task panic.
func ErrTaskPanic(name string, v any) error {
	return fmt.Errorf("cron: task %s panicked: %v", name, v)
}
