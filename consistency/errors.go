package consistency

import "fmt"

// ErrConflict is the sentinel matched by errors.Is when a strategy cannot
// resolve divergent copies automatically.
var ErrConflict = fmt.Errorf("consistency: unresolvable conflict")

// ErrUnresolvable wraps ErrConflict with the entity and reason
func ErrUnresolvable(entityID, strategy, reason string) error {
	return fmt.Errorf("consistency: entity %q unresolvable under %q strategy: %s: %w",
		entityID, strategy, reason, ErrConflict)
}

// ErrUnknownStrategy returns an error for an unrecognized strategy name
func ErrUnknownStrategy(name string) error {
	return fmt.Errorf("consistency: unknown strategy %q (must be timestamp, server, client or merge)", name)
}
