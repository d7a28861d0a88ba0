package syncer

import (
	"time"

	"github.com/fundexplorer/datakit/remote"
)

// Config defines the sync manager configuration.
type Config struct {
	// Interval between incremental pulls.
	Interval time.Duration `mapstructure:"interval"`
	// EntityTypes lists the entity types the pull chain tracks.
	EntityTypes []string `mapstructure:"entity_types"`
	// EntryTTL is the cache TTL for records written by a pull.
	EntryTTL time.Duration `mapstructure:"entry_ttl"`
	// QueuePrefix namespaces persisted offline writes in the kv store.
	QueuePrefix string `mapstructure:"queue_prefix"`
	// QueueInitCap is the offline queue's initial buffer capacity.
	QueueInitCap int `mapstructure:"queue_init_cap"`
	// KeyFor maps an incremental change to its cache key. Defaults to the
	// change's entity id.
	KeyFor func(change remote.Change) string `mapstructure:"-"`
}

// DefaultConfig returns the default sync manager configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval:     15 * time.Minute,
		EntryTTL:     30 * time.Minute,
		QueuePrefix:  "offline/",
		QueueInitCap: 64,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidInterval
	}
	if len(c.EntityTypes) == 0 {
		return ErrNoEntityTypes
	}
	if c.QueuePrefix == "" {
		return ErrEmptyQueuePrefix
	}
	return nil
}
