package dedupe

import "time"

// Config holds configuration for the deduplication manager
type Config struct {
	// DefaultTimeout bounds a subscriber's wait when GetOrExecute is called
	// with a zero timeout. Zero means the wait is bounded only by the
	// caller's context.
	// default: 0
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// DefaultConfig returns the default configuration for the manager
func DefaultConfig() *Config {
	return &Config{}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultTimeout < 0 {
		return ErrInvalidTimeout(c.DefaultTimeout)
	}
	return nil
}
