// Package config loads tensorfang settings from a YAML file,
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/tensorfang/internal/place"
)

// Config is the top-level configuration struct for tensorfang.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Executor      ExecutorConfig      `mapstructure:"executor"`
	Run           RunConfig           `mapstructure:"run"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Checkpoint    CheckpointConfig    `mapstructure:"checkpoint"`
}

// ExecutorConfig holds scope-buffering and worker layout knobs.
type ExecutorConfig struct {
	StepsPerDrop int      `mapstructure:"steps_per_drop"`
	Workers      int      `mapstructure:"workers"`
	Places       []string `mapstructure:"places"`
}

// RunConfig holds per-invocation run settings.
type RunConfig struct {
	Steps   int      `mapstructure:"steps"`
	Fetches []string `mapstructure:"fetches"`
}

// ObservabilityConfig holds logging, tracing and metrics settings.
type ObservabilityConfig struct {
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure  bool    `mapstructure:"otlp_insecure"`
	LogJSON       bool    `mapstructure:"log_json"`
	LogLevel      string  `mapstructure:"log_level"`
	MetricsListen string  `mapstructure:"metrics_listen"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// CheckpointConfig holds persistent-scope snapshot settings.
type CheckpointConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidStepsPerDrop indicates the drop interval is not positive.
	ErrInvalidStepsPerDrop = errors.New("executor.steps_per_drop must be positive")
	// ErrInvalidWorkers indicates the worker count is not positive.
	ErrInvalidWorkers = errors.New("executor.workers must be positive")
	// ErrInvalidPlaces indicates the place list does not match the worker count.
	ErrInvalidPlaces = errors.New("executor.places must list one place per worker")
	// ErrInvalidSteps indicates the run step count is not positive.
	ErrInvalidSteps = errors.New("run.steps must be positive")
	// ErrInvalidSampleRatio indicates the trace sample ratio is out of range.
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Executor.StepsPerDrop < 1 {
		return ErrInvalidStepsPerDrop
	}

	if c.Executor.Workers < 1 {
		return ErrInvalidWorkers
	}

	if _, err := c.Executor.PlaceList(); err != nil {
		return err
	}

	if c.Run.Steps < 1 {
		return ErrInvalidSteps
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	if _, err := c.Observability.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// PlaceList resolves the configured places. An empty list assigns one
// CPU device per worker.
func (c *ExecutorConfig) PlaceList() ([]place.Place, error) {
	if len(c.Places) == 0 {
		places := make([]place.Place, c.Workers)
		for i := range places {
			places[i] = place.Place{Kind: place.CPU, Device: i}
		}

		return places, nil
	}

	if len(c.Places) != c.Workers {
		return nil, fmt.Errorf("%w: %d places for %d workers",
			ErrInvalidPlaces, len(c.Places), c.Workers)
	}

	places := make([]place.Place, len(c.Places))

	for i, raw := range c.Places {
		p, err := place.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("executor.places[%d]: %w", i, err)
		}

		places[i] = p
	}

	return places, nil
}

// SlogLevel parses the configured log level name.
func (c *ObservabilityConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return 0, fmt.Errorf("observability.log_level: %w", err)
	}

	return level, nil
}
