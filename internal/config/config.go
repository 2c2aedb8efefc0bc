// Package config loads the mixing run configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of a mixing session.
type Config struct {
	Hops         int    `yaml:"hops"`           // number of redeem/re-mint hops after the initial mint
	PoolSize     int    `yaml:"pool_size"`      // number of issuers in the vendor pool
	MinLatencyMs int    `yaml:"min_latency_ms"` // lower bound of simulated issuer latency
	MaxLatencyMs int    `yaml:"max_latency_ms"` // upper bound (exclusive) of simulated issuer latency
	Amount       int64  `yaml:"amount"`         // initial amount to mix
	SourceLabel  string `yaml:"source_label"`   // origin marker attached only at the initial mint
	Seed         int64  `yaml:"seed"`           // selection/latency RNG seed; 0 means time-seeded
	MetricsAddr  string `yaml:"metrics_addr"`   // HTTP listen address for /metrics
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Hops:         10,
		PoolSize:     15,
		MinLatencyMs: 30,
		MaxLatencyMs: 150,
		Amount:       10000,
		SourceLabel:  "original_source",
		MetricsAddr:  ":9090",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from MIX_* environment variables. Malformed
// values are ignored in favor of the current value.
func (c *Config) applyEnv() {
	if v, ok := envInt("MIX_HOPS"); ok {
		c.Hops = v
	}
	if v, ok := envInt("MIX_POOL_SIZE"); ok {
		c.PoolSize = v
	}
	if v, ok := envInt("MIX_MIN_LATENCY_MS"); ok {
		c.MinLatencyMs = v
	}
	if v, ok := envInt("MIX_MAX_LATENCY_MS"); ok {
		c.MaxLatencyMs = v
	}
	if v, ok := envInt64("MIX_AMOUNT"); ok {
		c.Amount = v
	}
	if v := os.Getenv("MIX_SOURCE_LABEL"); v != "" {
		c.SourceLabel = v
	}
	if v, ok := envInt64("MIX_SEED"); ok {
		c.Seed = v
	}
	if v := os.Getenv("MIX_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
}

// Validate checks the configured values against the documented bounds.
func (c Config) Validate() error {
	if c.Hops < 0 {
		return fmt.Errorf("hops must be non-negative, got %d", c.Hops)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	if c.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", c.Amount)
	}
	if c.MinLatencyMs < 0 {
		return fmt.Errorf("min_latency_ms must be non-negative, got %d", c.MinLatencyMs)
	}
	if c.MinLatencyMs >= c.MaxLatencyMs {
		return fmt.Errorf("min_latency_ms (%d) must be below max_latency_ms (%d)",
			c.MinLatencyMs, c.MaxLatencyMs)
	}
	return nil
}

// MinLatency returns the lower latency bound as a duration.
func (c Config) MinLatency() time.Duration {
	return time.Duration(c.MinLatencyMs) * time.Millisecond
}

// MaxLatency returns the upper latency bound as a duration.
func (c Config) MaxLatency() time.Duration {
	return time.Duration(c.MaxLatencyMs) * time.Millisecond
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envInt64(key string) (int64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
