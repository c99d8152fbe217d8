package config

import (
	"fmt"
	"strings"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // console, json
	File       string          `yaml:"file"`       // optional extra output
	Categories map[string]bool `yaml:"categories"` // per-category toggles, missing = enabled
}

// Validate checks level and format names.
func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level %q", ErrInvalid, c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", ErrInvalid, c.Format)
	}
	return nil
}
