package logger

import (
	"fmt"
	"slices"
	"strings"
)

var (
	levelNames    = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	encodingNames = []string{"json", "console"}
)

// Config defines the logger configuration.
type Config struct {
	// Level is the minimum level emitted, one of debug, info, warn,
	// error, dpanic, panic or fatal. Defaults to "info".
	Level string `mapstructure:"level"`
	// Encoding selects the output format, json or console. Defaults to
	// "json".
	Encoding string `mapstructure:"encoding"`
	// OutputPaths receive regular log output. Defaults to stdout.
	OutputPaths []string `mapstructure:"output_paths"`
	// ErrorOutputPaths receive zap's internal errors. Defaults to stderr.
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(levelNames, c.Level) {
		return ErrInvalidLevel(c.Level, fmt.Errorf("expected one of %s", strings.Join(levelNames, ", ")))
	}
	if !slices.Contains(encodingNames, c.Encoding) {
		return ErrInvalidEncoding(c.Encoding)
	}
	return nil
}
