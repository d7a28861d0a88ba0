package remote

import "time"

// Config defines the HTTP source configuration.
type Config struct {
	// SourceID identifies this source in routing and version metadata.
	SourceID string `mapstructure:"source_id"`
	// BaseURL is the API root, e.g. "https://api.fund.example.com/v1".
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`
	// VersionHeader names the response header carrying the version token.
	VersionHeader string `mapstructure:"version_header"`
}

// DefaultConfig returns the default HTTP source configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:       10 * time.Second,
		VersionHeader: "X-Data-Version",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SourceID == "" {
		return ErrInvalidConfig("source_id is required")
	}
	if c.BaseURL == "" {
		return ErrInvalidConfig("base_url is required")
	}
	if c.Timeout <= 0 {
		return ErrInvalidConfig("timeout must be positive")
	}
	return nil
}
