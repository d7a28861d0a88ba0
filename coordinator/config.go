package coordinator

import "time"

// Config defines the coordinator configuration.
type Config struct {
	// DefaultTimeout bounds a fetch when the request does not set one.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// DefaultTTL is the cache TTL for fetched records when the request
	// does not set one.
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout: 2 * time.Second,
		DefaultTTL:     5 * time.Minute,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DefaultTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.DefaultTTL <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
