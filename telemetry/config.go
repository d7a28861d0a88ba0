package telemetry

import "time"

// Config defines the pipeline configuration.
type Config struct {
	// FlushSize triggers a flush once this many events are buffered.
	FlushSize int `mapstructure:"flush_size"`
	// FlushInterval triggers a flush for partial batches.
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	// WriteTimeout bounds each sink write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		FlushSize:     256,
		FlushInterval: 5 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.FlushSize <= 0 {
		return ErrInvalidFlushSize
	}
	if c.FlushInterval <= 0 {
		return ErrInvalidFlushInterval
	}
	if c.WriteTimeout <= 0 {
		return ErrInvalidWriteTimeout
	}
	return nil
}
