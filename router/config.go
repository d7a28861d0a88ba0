package router

import "time"

// Config holds configuration for the router
type Config struct {
	// FailureThreshold is the consecutive-failure streak that marks a
	// target unhealthy; a healthy target turns degraded once the streak
	// passes half the threshold
	// default: 5
	FailureThreshold int `mapstructure:"failure_threshold"`
	// RecoveryThreshold is the consecutive-success streak that steps a
	// target's state back up (unhealthy -> degraded -> healthy)
	// default: 3
	RecoveryThreshold int `mapstructure:"recovery_threshold"`
	// Alpha is the EWMA weight applied to each new outcome sample
	// default: 0.3
	Alpha float64 `mapstructure:"alpha"`
	// LatencyTarget is the latency at or below which a success counts
	// fully toward the health score; slower successes are discounted
	// default: 500ms
	LatencyTarget time.Duration `mapstructure:"latency_target"`
}

// DefaultConfig returns the default configuration for the router
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold:  5,
		RecoveryThreshold: 3,
		Alpha:             0.3,
		LatencyTarget:     500 * time.Millisecond,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FailureThreshold < 1 {
		return ErrInvalidThreshold("failure_threshold", c.FailureThreshold)
	}
	if c.RecoveryThreshold < 1 {
		return ErrInvalidThreshold("recovery_threshold", c.RecoveryThreshold)
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return ErrInvalidAlpha(c.Alpha)
	}
	if c.LatencyTarget < 0 {
		return ErrInvalidLatencyTarget(c.LatencyTarget)
	}
	return nil
}
