// Package remote defines the boundary to remote fund-data sources and
// provides the HTTP implementation used against the fund-data API.
package remote

import (
	"context"
	"time"

	"github.com/fundexplorer/datakit/consistency"
)

// Payload is one fetched response.
type Payload struct {
	// Body is the raw JSON response
	Body []byte
	// Version identifies this copy of the entity for conflict detection
	Version consistency.Version
	// FetchedAt is when the response was received
	FetchedAt time.Time
}

// Change is one entity reported by an incremental sync pull.
type Change struct {
	EntityType string
	EntityID   string
	Body       []byte
	Version    consistency.Version
}

// WriteOp is a pending write captured while offline, replayed against the
// source in capture order.
type WriteOp struct {
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Body       []byte            `json:"body"`
	Params     map[string]string `json:"params,omitempty"`
	CapturedAt time.Time         `json:"captured_at"`
}

// PushResult reports the outcome of replaying a write. When the server
// detects a conflicting copy it returns it for resolution instead of
// applying the write.
type PushResult struct {
	Conflict bool
	Server   *consistency.Record
}

// Source is one remote fund-data backend.
type Source interface {
	// ID is the stable identifier used by the router's health table
	ID() string

	// Fetch retrieves an entity snapshot
	Fetch(ctx context.Context, entityType string, params map[string]string) (*Payload, error)

	// ChangedSince returns entities of the given type modified after since
	ChangedSince(ctx context.Context, entityType string, since time.Time) ([]Change, error)

	// Push replays one offline write
	Push(ctx context.Context, op WriteOp) (*PushResult, error)
}
