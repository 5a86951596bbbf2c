// Package config provides the configuration of the example programs: which
// backend the bus lines are wired to, the line assignment and the protocol
// timing.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/oxplot/go-bbi2c/linedrv"
	"github.com/oxplot/go-bbi2c/master"
)

// Backends the bus lines can be wired to.
const (
	BackendGPIO    = "gpio"    // host GPIO pins
	BackendPCF8574 = "pcf8574" // PCF8574 I/O expander on a hardware I2C bus
	BackendSim     = "sim"     // simulated bus with a memory target
)

// Config is the top-level configuration.
type Config struct {
	Backend       string        `yaml:"backend"` // "gpio", "pcf8574" or "sim", default: "sim"
	Pins          PinsConfig    `yaml:"pins"`
	GPIO          GPIOConfig    `yaml:"gpio"`
	PCF8574       PCF8574Config `yaml:"pcf8574"`
	Timing        TimingConfig  `yaml:"timing"`
	NackLastByte  bool          `yaml:"nack_last_byte"`
	ReportTimeout bool          `yaml:"report_timeout"`
	Log           LogConfig     `yaml:"log"`
	Metrics       MetricsConfig `yaml:"metrics"`
}

// PinsConfig assigns the bus lines to port lines.
type PinsConfig struct {
	SDA int `yaml:"sda"` // default: 0
	SCL int `yaml:"scl"` // default: 1
}

// GPIOConfig holds settings for the gpio backend.
type GPIOConfig struct {
	// Pin names as known to periph gpioreg, line n of the port being the n-th
	// name. Empty names leave a line unused.
	Lines []string `yaml:"lines"` // default: ["GPIO2", "GPIO3"]
}

// PCF8574Config holds settings for the pcf8574 backend.
type PCF8574Config struct {
	Bus     string `yaml:"bus"`     // periph i2creg name, default: first bus
	Address uint16 `yaml:"address"` // default: 0x20
}

// TimingConfig holds protocol timing. Zero values use the library defaults.
type TimingConfig struct {
	SettleDelay    time.Duration `yaml:"settle_delay"`    // default: 2ms
	StretchTimeout time.Duration `yaml:"stretch_timeout"` // default: 1s
	HalfPeriod     time.Duration `yaml:"half_period"`     // default: 0
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn" or "error", default: "info"
}

// MetricsConfig holds settings of the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // listen address, empty disables the endpoint
	Path string `yaml:"path"` // default: "/metrics"
}

// Defaults returns the configuration with every default applied.
func Defaults() Config {
	return Config{
		Backend: BackendSim,
		Pins:    PinsConfig{SDA: 0, SCL: 1},
		GPIO:    GPIOConfig{Lines: []string{"GPIO2", "GPIO3"}},
		PCF8574: PCF8574Config{Address: 0x20},
		Timing: TimingConfig{
			SettleDelay:    master.DefaultConfig.SettleDelay,
			StretchTimeout: master.DefaultConfig.StretchTimeout,
		},
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Path: "/metrics"},
	}
}

// LinePins returns the line assignment.
func (c *Config) LinePins() linedrv.Pins {
	return linedrv.Pins{SDA: c.Pins.SDA, SCL: c.Pins.SCL}
}

// Master returns the session configuration. Clock and Logger are left for
// the caller to set.
func (c *Config) Master() master.Config {
	return master.Config{
		SettleDelay:    c.Timing.SettleDelay,
		StretchTimeout: c.Timing.StretchTimeout,
		HalfPeriod:     c.Timing.HalfPeriod,
		NackLastByte:   c.NackLastByte,
		ReportTimeout:  c.ReportTimeout,
	}
}

// LogLevel returns the configured log level. Unknown levels map to info;
// Validate rejects them.
func (c *Config) LogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
