package chsink

import "time"

// Config defines the ClickHouse sink configuration.
type Config struct {
	// Hosts are the ClickHouse server addresses.
	Hosts []string `mapstructure:"hosts"`
	// Database to write into.
	Database string `mapstructure:"database"`
	// Username for authentication.
	Username string `mapstructure:"username"`
	// Password for authentication.
	Password string `mapstructure:"password"`
	// Table receiving event rows.
	Table string `mapstructure:"table"`
	// DialTimeout bounds the initial connection.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// DefaultConfig returns the default sink configuration.
func DefaultConfig() *Config {
	return &Config{
		Table:       "datakit_events",
		DialTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return ErrInvalidConfig("at least one host is required")
	}
	if c.Database == "" {
		return ErrInvalidConfig("database is required")
	}
	if c.Table == "" {
		return ErrInvalidConfig("table is required")
	}
	return nil
}
