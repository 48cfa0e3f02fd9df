// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the configuration for a Benchwire console agent.
type Config struct {
	// Console configures the device console transport.
	Console ConsoleConfig `yaml:"console"`

	// Relay configures the observer relay listener.
	Relay RelayConfig `yaml:"relay"`

	// Capture configures console log capture.
	Capture CaptureConfig `yaml:"capture"`
}

// ConsoleConfig selects and parameterizes the console transport.
type ConsoleConfig struct {
	// Driver is the transport driver: "serial" or "tcp".
	Driver string `yaml:"driver"`

	// Device is the serial device path (serial driver only).
	// Example: /dev/ttyUSB0
	Device string `yaml:"device"`

	// Baud is the serial line rate (serial driver only).
	// Default: 115200
	Baud int `yaml:"baud"`

	// Address is the host:port of a network console server
	// (tcp driver only). Example: bench-07:5000
	Address string `yaml:"address"`

	// Prompt is the shell prompt the device emits when ready for a
	// command. Default: "=> "
	Prompt string `yaml:"prompt"`

	// Timestamps enables elapsed-time markers after every line.
	Timestamps bool `yaml:"timestamps"`
}

// RelayConfig configures the observer relay.
type RelayConfig struct {
	// Listen is the address the relay accepts observers on
	// (e.g., ":7600"). Empty disables the relay; console output then
	// falls through to stdout.
	Listen string `yaml:"listen"`

	// HistoryBytes is the ring buffer capacity for observer catch-up.
	// Default: 1 MB.
	HistoryBytes int `yaml:"history_bytes"`
}

// CaptureConfig configures console log capture.
type CaptureConfig struct {
	// Path is the file console output is captured to. Empty disables
	// capture.
	Path string `yaml:"path"`
}

// Default returns the default configuration. The defaults give all
// fields sensible values; the config file is still required for
// anything bench-specific (device path, addresses).
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{
			Driver:     "serial",
			Baud:       115200,
			Prompt:     "=> ",
			Timestamps: false,
		},
		Relay: RelayConfig{
			HistoryBytes: 1024 * 1024,
		},
	}
}

// Load loads configuration from the BENCHWIRE_CONFIG environment
// variable. Fails if the variable is not set — there are no fallback
// search paths.
func Load() (*Config, error) {
	path := os.Getenv("BENCHWIRE_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("BENCHWIRE_CONFIG environment variable not set; " +
			"set it to the path of your benchwire.yaml config file, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging the
// file's values over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	switch c.Console.Driver {
	case "serial":
		if c.Console.Device == "" {
			errs = append(errs, fmt.Errorf("console.device is required for the serial driver"))
		}
		if c.Console.Baud <= 0 {
			errs = append(errs, fmt.Errorf("console.baud must be positive, got %d", c.Console.Baud))
		}
	case "tcp":
		if c.Console.Address == "" {
			errs = append(errs, fmt.Errorf("console.address is required for the tcp driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("console.driver must be \"serial\" or \"tcp\", got %q", c.Console.Driver))
	}

	if c.Console.Prompt == "" {
		errs = append(errs, fmt.Errorf("console.prompt is required"))
	}

	if c.Relay.HistoryBytes <= 0 {
		errs = append(errs, fmt.Errorf("relay.history_bytes must be positive, got %d", c.Relay.HistoryBytes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
