package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, BBI2C_CONFIG env, ./bbi2c.yaml)
//  3. Environment variable overrides
//  4. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if filePath := discoverConfigFile(configPath); filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// discoverConfigFile returns the explicit path if set, then the path in
// BBI2C_CONFIG, then ./bbi2c.yaml if it exists. It returns an empty string if
// there is no config file.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("BBI2C_CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("bbi2c.yaml"); err == nil {
		return "bbi2c.yaml"
	}
	return ""
}

// loadYAMLFile parses a YAML file into cfg. Fields not present in the file
// keep their current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("BBI2C_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("BBI2C_SDA"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BBI2C_SDA: %w", err)
		}
		cfg.Pins.SDA = n
	}
	if v := os.Getenv("BBI2C_SCL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BBI2C_SCL: %w", err)
		}
		cfg.Pins.SCL = n
	}
	if v := os.Getenv("BBI2C_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BBI2C_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	return nil
}
