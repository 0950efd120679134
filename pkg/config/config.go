package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and clamps batch sizes.
func Validate(cfg *Config) error {
	if cfg.Detection.SampleLines <= 0 {
		return fmt.Errorf("detection.sample_lines: must be positive, got %d", cfg.Detection.SampleLines)
	}

	if cfg.Detection.MinMatchRatio <= 0 || cfg.Detection.MinMatchRatio > 1 {
		return fmt.Errorf("detection.min_match_ratio: must be in (0, 1], got %g", cfg.Detection.MinMatchRatio)
	}

	if cfg.Parsing.MaxLineBytes <= 0 {
		return fmt.Errorf("parsing.max_line_bytes: must be positive, got %d", cfg.Parsing.MaxLineBytes)
	}

	if cfg.Workers < 0 {
		return fmt.Errorf("workers: must be non-negative, got %d", cfg.Workers)
	}

	cfg.Parsing.BatchSize = ClampBatchSize(cfg.Parsing.BatchSize)

	return nil
}

// ClampBatchSize bounds a batch size to [MinBatchSize, MaxBatchSize],
// substituting the default for zero or negative values.
func ClampBatchSize(n int) int {
	if n <= 0 {
		return DefaultBatchSize
	}
	if n < MinBatchSize {
		return MinBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Parsing.BatchSize = n
		}
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Workers = n
		}
	}
}
