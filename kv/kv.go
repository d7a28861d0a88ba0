// Package kv defines the opaque key-value boundary used as the persistent
// cache tier and as durable storage for the offline write queue.
//
// The data layer does not assume a specific storage engine; any backend
// that can store bytes under a string key with an optional TTL can serve.
// Implementations live in the memstore, redisstore and gormstore
// subpackages.
package kv

import (
	"context"
	"time"
)

// Store is the contract between the data layer and a persistent backend.
type Store interface {
	// Get returns the value stored under key.
	// It returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key. A ttl of zero means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix in lexicographic order.
	// The offline write queue relies on this ordering for replay.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}
