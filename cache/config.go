package cache

import "time"

// Config holds configuration for the multi-level cache
type Config struct {
	// MaxSize is the L1 capacity in entries
	// default: 1024
	MaxSize int `mapstructure:"max_size"`
	// SweepInterval is how often the janitor removes expired entries and
	// re-evaluates the sizing policy. Zero disables the janitor; expired
	// entries are then only evicted lazily on access.
	// default: 0
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// PromoteTTL is the TTL applied to entries promoted from the persistent
	// tier, whose original TTL is managed by the backend and unknown here.
	// Zero means promoted entries carry no L1 expiry.
	// default: 0
	PromoteTTL time.Duration `mapstructure:"promote_ttl"`
	// Sizer is the adaptive sizing policy, evaluated on each janitor sweep.
	// Nil keeps MaxSize fixed.
	Sizer Sizer `mapstructure:"-"`
}

// DefaultConfig returns the default configuration for the cache
func DefaultConfig() *Config {
	return &Config{
		MaxSize: 1024,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxSize < 1 {
		return ErrInvalidMaxSize(c.MaxSize)
	}
	if c.SweepInterval < 0 {
		return ErrInvalidSweepInterval(c.SweepInterval)
	}
	return nil
}
