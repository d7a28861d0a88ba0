// Package consistency detects divergence between local and remote copies of
// an entity and resolves it under a pluggable strategy.
//
// Resolution is pure and deterministic: identical inputs always produce
// identical outputs. Cases a strategy cannot decide are surfaced as
// unresolvable rather than guessed, since silently picking a side would
// corrupt financial data.
package consistency

import (
	"time"
)

// Version identifies one copy of an entity. Token is a monotonically
// non-decreasing marker (timestamp or counter) per entity+source pair.
type Version struct {
	EntityID string `json:"entity_id"`
	Token    int64  `json:"token"`
	SourceID string `json:"source_id"`
	Checksum string `json:"checksum,omitempty"`
}

// Record is one side of a resolution: a value plus its version and,
// optionally, per-field update times used by the merge strategy.
type Record struct {
	Value      any
	Version    Version
	FieldTimes map[string]time.Time
}

// Winner indicates which side a resolution picked.
type Winner string

const (
	WinnerLocal  Winner = "local"
	WinnerRemote Winner = "remote"
	WinnerMerged Winner = "merged"
)

// Resolved is the outcome of a resolution.
type Resolved struct {
	Value  Record
	Winner Winner
}

// Strategy decides between two divergent copies of the same entity.
// Implementations must be pure: no clock reads, no randomness.
type Strategy interface {
	// Name identifies the strategy in logs and configuration
	Name() string
	// Resolve picks or builds the surviving record
	Resolve(local, remote Record) (Resolved, error)
}

// Conflicting reports whether two versions of the same entity diverge:
// their tokens differ, or the tokens match but the content checksums do not.
func Conflicting(local, remote Version) bool {
	if local.EntityID != remote.EntityID {
		return false
	}
	if local.Token != remote.Token {
		return true
	}
	return local.Checksum != "" && remote.Checksum != "" && local.Checksum != remote.Checksum
}

// ByName returns the built-in strategy with the given name.
func ByName(name string) (Strategy, error) {
	switch name {
	case "timestamp":
		return Timestamp{}, nil
	case "server":
		return ServerWins{}, nil
	case "client":
		return ClientWins{}, nil
	case "merge":
		return Merge{}, nil
	default:
		return nil, ErrUnknownStrategy(name)
	}
}
