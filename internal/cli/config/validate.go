package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapstar/internal/cli/output"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks the settings that are not covered by target validation.
func (c *Config) Validate() error {
	if _, err := core.ParseFactPolicy(c.Load.FactPolicy); err != nil {
		return err
	}
	if c.Load.Timeout < 0 {
		return fmt.Errorf("load.timeout must not be negative, got %s", c.Load.Timeout)
	}
	if c.Load.MaxOrderNumberLength < 0 {
		return fmt.Errorf("load.max_order_number_length must not be negative, got %d", c.Load.MaxOrderNumberLength)
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log_level %q (valid: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log_format %q (valid: %s)", c.LogFormat, strings.Join(validLogFormats, ", "))
	}
	if !output.OutputMode(c.OutputFormat).IsValid() {
		return fmt.Errorf("invalid output %q (valid: %s)", c.OutputFormat, strings.Join(output.ValidModes, ", "))
	}
	return nil
}

