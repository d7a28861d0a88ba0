package telemetry

import (
	"context"
	"time"
)

// Kind classifies a data-access event.
type Kind string

const (
	KindFetch      Kind = "fetch"
	KindCacheHit   Kind = "cache_hit"
	KindCacheMiss  Kind = "cache_miss"
	KindStaleServe Kind = "stale_serve"
	KindEvict      Kind = "evict"
	KindFailover   Kind = "failover"
	KindSync       Kind = "sync"
	KindConflict   Kind = "conflict"
)

// Event is one observed data-access operation.
type Event struct {
	Time       time.Time     `json:"time"`
	Kind       Kind          `json:"kind"`
	EntityType string        `json:"entity_type,omitempty"`
	Key        string        `json:"key,omitempty"`
	SourceID   string        `json:"source_id,omitempty"`
	Latency    time.Duration `json:"latency,omitempty"`
	Err        string        `json:"err,omitempty"`
}

// Sink receives event batches. Implementations must tolerate concurrent
// Write calls from at most one flusher goroutine and a final drain on
// Close.
type Sink interface {
	Write(ctx context.Context, events []Event) error
	Close() error
}
