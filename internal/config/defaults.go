package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	// DefaultStepsPerDrop is the number of steps between transient
	// scope reclamations.
	DefaultStepsPerDrop = 100

	// DefaultWorkers is the number of data-parallel replicas.
	DefaultWorkers = 1

	// DefaultRunSteps is the number of steps an unconfigured run
	// executes.
	DefaultRunSteps = 1

	// DefaultLogLevel is the slog level name used when none is set.
	DefaultLogLevel = "info"

	// DefaultSampleRatio traces every step.
	DefaultSampleRatio = 1.0

	// DefaultCheckpointEnabled disables snapshots unless requested.
	DefaultCheckpointEnabled = false

	// DefaultCheckpointDir is where snapshots are written.
	DefaultCheckpointDir = ".tensorfang/snapshots"
)

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("executor.steps_per_drop", DefaultStepsPerDrop)
	viperCfg.SetDefault("executor.workers", DefaultWorkers)
	viperCfg.SetDefault("executor.places", []string{})

	viperCfg.SetDefault("run.steps", DefaultRunSteps)
	viperCfg.SetDefault("run.fetches", []string{})

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.log_json", false)
	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.metrics_listen", "")
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)

	viperCfg.SetDefault("checkpoint.enabled", DefaultCheckpointEnabled)
	viperCfg.SetDefault("checkpoint.dir", DefaultCheckpointDir)
}
