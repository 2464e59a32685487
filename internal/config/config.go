// Package config loads the tunables that govern a reboot run.
//
// Every timeout, attempt count, and per-role parallelism default can be
// overridden through environment variables, and optionally through a YAML
// file whose values sit below the environment in precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configurable values for a reboot run.
type Config struct {
	// ReadyAttempts is the number of readiness polls after a reboot.
	ReadyAttempts int `yaml:"readyAttempts"`
	// AccessAttempts is the number of host access probes after a reboot.
	AccessAttempts int `yaml:"accessAttempts"`
	// RetryInterval is the pause between poll attempts and drain retries.
	RetryInterval time.Duration `yaml:"retryInterval"`
	// CommandTimeout bounds a single privileged command on a node.
	CommandTimeout time.Duration `yaml:"commandTimeout"`
	// DrainTimeout bounds a single drain attempt.
	DrainTimeout time.Duration `yaml:"drainTimeout"`
	// DrainRetryCount is the number of drain (and uncordon) attempts.
	DrainRetryCount int `yaml:"drainRetryCount"`
	// DebugNamespace is where privileged debug pods are created.
	DebugNamespace string `yaml:"debugNamespace"`
	// ReportDir is where run reports are written.
	ReportDir string `yaml:"reportDir"`
	// Parallelism maps a node role to its default batch size.
	Parallelism map[string]int `yaml:"parallelism"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ReadyAttempts:   30,
		AccessAttempts:  12,
		RetryInterval:   10 * time.Second,
		CommandTimeout:  60 * time.Second,
		DrainTimeout:    300 * time.Second,
		DrainRetryCount: 3,
		DebugNamespace:  "noderoll-debug",
		ReportDir:       ".",
		Parallelism: map[string]int{
			"master": 1,
			"infra":  1,
			"worker": 2,
		},
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path (if path is non-empty), overlaid by environment variables.
//
// Environment variables:
//   - NODEROLL_READY_ATTEMPTS (default: 30)
//   - NODEROLL_ACCESS_ATTEMPTS (default: 12)
//   - NODEROLL_RETRY_INTERVAL (default: 10s)
//   - NODEROLL_COMMAND_TIMEOUT (default: 60s)
//   - NODEROLL_DRAIN_TIMEOUT (default: 300s)
//   - NODEROLL_DRAIN_RETRY_COUNT (default: 3)
//   - NODEROLL_DEBUG_NAMESPACE (default: noderoll-debug)
//   - NODEROLL_REPORT_DIR (default: current directory)
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	cfg.ReadyAttempts = parseInt("NODEROLL_READY_ATTEMPTS", cfg.ReadyAttempts)
	cfg.AccessAttempts = parseInt("NODEROLL_ACCESS_ATTEMPTS", cfg.AccessAttempts)
	cfg.RetryInterval = parseDuration("NODEROLL_RETRY_INTERVAL", cfg.RetryInterval)
	cfg.CommandTimeout = parseDuration("NODEROLL_COMMAND_TIMEOUT", cfg.CommandTimeout)
	cfg.DrainTimeout = parseDuration("NODEROLL_DRAIN_TIMEOUT", cfg.DrainTimeout)
	cfg.DrainRetryCount = parseInt("NODEROLL_DRAIN_RETRY_COUNT", cfg.DrainRetryCount)
	if ns := os.Getenv("NODEROLL_DEBUG_NAMESPACE"); ns != "" {
		cfg.DebugNamespace = ns
	}
	if dir := os.Getenv("NODEROLL_REPORT_DIR"); dir != "" {
		cfg.ReportDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects values that would stall or skip the run outright.
func (c *Config) Validate() error {
	if c.ReadyAttempts < 1 {
		return fmt.Errorf("readyAttempts must be at least 1, got %d", c.ReadyAttempts)
	}
	if c.AccessAttempts < 1 {
		return fmt.Errorf("accessAttempts must be at least 1, got %d", c.AccessAttempts)
	}
	if c.DrainRetryCount < 1 {
		return fmt.Errorf("drainRetryCount must be at least 1, got %d", c.DrainRetryCount)
	}
	if c.RetryInterval < 0 {
		return fmt.Errorf("retryInterval must not be negative, got %s", c.RetryInterval)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("commandTimeout must be positive, got %s", c.CommandTimeout)
	}
	if c.DrainTimeout <= 0 {
		return fmt.Errorf("drainTimeout must be positive, got %s", c.DrainTimeout)
	}
	for role, n := range c.Parallelism {
		if n < 1 {
			return fmt.Errorf("parallelism for role %q must be at least 1, got %d", role, n)
		}
	}
	return nil
}

// ParallelismFor returns the default batch size for a role.
// Roles without an explicit entry fall back to 1.
func (c *Config) ParallelismFor(role string) int {
	if n, ok := c.Parallelism[role]; ok {
		return n
	}
	return 1
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
