package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for valid values. All problems found are
// returned joined, each prefixed with the field path.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendGPIO, BackendPCF8574, BackendSim:
	default:
		errs = append(errs, fmt.Errorf("backend must be %q, %q or %q, got %q", BackendGPIO, BackendPCF8574, BackendSim, c.Backend))
	}

	if err := c.LinePins().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pins: %w", err))
	}

	if c.Backend == BackendGPIO {
		for _, l := range []struct {
			name string
			n    int
		}{{"sda", c.Pins.SDA}, {"scl", c.Pins.SCL}} {
			if l.n < 0 || l.n >= len(c.GPIO.Lines) || c.GPIO.Lines[l.n] == "" {
				errs = append(errs, fmt.Errorf("gpio.lines must name a pin for pins.%s (line %d)", l.name, l.n))
			}
		}
	}

	if c.Backend == BackendPCF8574 && c.PCF8574.Address > 0x7f {
		errs = append(errs, fmt.Errorf("pcf8574.address must be a 7 bit address, got %#x", c.PCF8574.Address))
	}

	if c.Timing.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("timing.settle_delay must be >= 0, got %v", c.Timing.SettleDelay))
	}
	if c.Timing.StretchTimeout < 0 {
		errs = append(errs, fmt.Errorf("timing.stretch_timeout must be >= 0, got %v", c.Timing.StretchTimeout))
	}
	if c.Timing.HalfPeriod < 0 {
		errs = append(errs, fmt.Errorf("timing.half_period must be >= 0, got %v", c.Timing.HalfPeriod))
	}

	if _, ok := parseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("log.level must be \"debug\", \"info\", \"warn\" or \"error\", got %q", c.Log.Level))
	}

	if c.Metrics.Addr != "" && (c.Metrics.Path == "" || c.Metrics.Path[0] != '/') {
		errs = append(errs, fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
	}

	return errors.Join(errs...)
}
