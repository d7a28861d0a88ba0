package redisstore

import "time"

// Config holds configuration for the Redis store
type Config struct {
	// Addr is the redis address in host:port form (required)
	Addr string `mapstructure:"addr"`
	// Password, empty means no auth
	Password string `mapstructure:"password"`
	// DB is the redis database index
	// default: 0
	DB int `mapstructure:"db"`
	// DialTimeout is the timeout for establishing a connection
	// default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// ReadTimeout is the timeout for read operations
	// default: 3s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the timeout for write operations
	// default: 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns the default configuration for the Redis store
func DefaultConfig() *Config {
	return &Config{
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidAddr(c.Addr)
	}
	if c.DB < 0 {
		return ErrInvalidDB(c.DB)
	}
	return nil
}
