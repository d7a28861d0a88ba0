package kafkasink

// Config defines the Kafka sink configuration.
type Config struct {
	// BootstrapServers is the comma-separated broker list.
	BootstrapServers string `mapstructure:"bootstrap_servers"`
	// Topic receiving event messages.
	Topic string `mapstructure:"topic"`
	// Acks is the producer acknowledgement mode.
	Acks string `mapstructure:"acks"`
	// FlushTimeoutMs bounds the final flush on Close.
	FlushTimeoutMs int `mapstructure:"flush_timeout_ms"`
}

// DefaultConfig returns the default sink configuration.
func DefaultConfig() *Config {
	return &Config{
		Acks:           "1",
		FlushTimeoutMs: 10000,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BootstrapServers == "" {
		return ErrInvalidConfig("bootstrap_servers is required")
	}
	if c.Topic == "" {
		return ErrInvalidConfig("topic is required")
	}
	return nil
}
