// Package commands implements CLI command handlers for tensorfang.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tensorfang/internal/checkpoint"
	"github.com/Sumatoshi-tech/tensorfang/internal/config"
	"github.com/Sumatoshi-tech/tensorfang/internal/engine"
	"github.com/Sumatoshi-tech/tensorfang/internal/executor"
	"github.com/Sumatoshi-tech/tensorfang/internal/observability"
	"github.com/Sumatoshi-tech/tensorfang/internal/place"
	"github.com/Sumatoshi-tech/tensorfang/internal/program"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/pkg/version"
)

// Engine names accepted by the run command.
const (
	engineSerial   = "serial"
	engineParallel = "parallel"
)

// snapshotBasename is the file name (without extension) used for scope
// snapshots.
const snapshotBasename = "scope"

// metricsReadHeaderTimeout bounds header reads on the metrics listener.
const metricsReadHeaderTimeout = 5 * time.Second

var (
	// ErrUnknownEngine indicates the requested engine name is not registered.
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrNoSnapshot indicates no scope snapshot was found in the given directory.
	ErrNoSnapshot = errors.New("no scope snapshot found")
)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath  string
	programPath string

	steps      int
	workers    int
	dropEvery  int
	engineName string
	fetches    []string
	places     []string

	loadScope string
	saveScope string
	plotPath  string

	metricsListen string
	otlpEndpoint  string
	logJSON       bool
	verbose       bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a program for N steps with scope buffering",
		Long: `Run loads a program manifest, builds one transient scope per worker
under a shared persistent scope, and steps the program while dropping
transient state every K steps.`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.programPath, "program", "p", "", "Program manifest path (YAML)")
	cmd.Flags().StringVar(&rc.configPath, "config", "", "Config file path (default: .tensorfang.yaml in CWD or $HOME)")

	cmd.Flags().IntVar(&rc.steps, "steps", 0, "Number of steps to run (overrides config)")
	cmd.Flags().IntVarP(&rc.workers, "workers", "w", 0, "Number of data-parallel workers (overrides config)")
	cmd.Flags().IntVar(&rc.dropEvery, "drop-every", 0, "Steps between transient scope drops (overrides config)")
	cmd.Flags().StringVar(&rc.engineName, "engine", engineSerial, "Step engine: serial or parallel")
	cmd.Flags().StringSliceVar(&rc.fetches, "fetch", nil, "Variables to fetch after each step (overrides config)")
	cmd.Flags().StringSliceVar(&rc.places, "place", nil, "Device places, one per worker, e.g. cpu:0 (overrides config)")

	cmd.Flags().StringVar(&rc.loadScope, "load-scope", "", "Directory to restore persistable variables from")
	cmd.Flags().StringVar(&rc.saveScope, "save-scope", "", "Directory to snapshot persistable variables into")
	cmd.Flags().StringVar(&rc.plotPath, "plot", "", "Write an HTML footprint chart to this path")

	cmd.Flags().StringVar(&rc.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address, e.g. :9464")
	cmd.Flags().StringVar(&rc.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC collector address, e.g. localhost:4317")
	cmd.Flags().BoolVar(&rc.logJSON, "log-json", false, "Emit JSON logs")
	cmd.Flags().BoolVarP(&rc.verbose, "verbose", "v", false, "Enable debug logging")

	_ = cmd.MarkFlagRequired("program")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	rc.applyOverrides(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return err
	}

	providers, err := rc.initObservability(cfg)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "observability shutdown: %v\n", shutdownErr)
		}
	}()

	logger := providers.Logger

	metrics, stopMetrics, err := rc.setupMetrics(cfg, providers, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	prog, err := program.Load(rc.programPath)
	if err != nil {
		return err
	}

	if len(cfg.Run.Fetches) == 0 {
		cfg.Run.Fetches = prog.Fetches
	}

	places, err := cfg.Executor.PlaceList()
	if err != nil {
		return err
	}

	root := scope.New()
	transients := make([]*scope.Scope, len(places))
	workers := make([]executor.Worker, len(places))

	for i, p := range places {
		transients[i] = root.NewChild()
		workers[i] = executor.Worker{Persistent: root, Transient: transients[i], Place: p}
	}

	if rc.loadScope != "" {
		restoreErr := restoreScope(root, rc.loadScope, logger)
		if restoreErr != nil {
			return restoreErr
		}
	}

	eng, err := buildEngine(rc.engineName, prog, transients, places)
	if err != nil {
		return err
	}

	pool := place.NewPool()
	defer pool.Close()

	exec, err := executor.New(executor.Config{
		StepsPerDrop: cfg.Executor.StepsPerDrop,
		Workers:      workers,
		Vars:         prog.Vars,
		Engine:       eng,
		Program:      prog,
		Pool:         pool,
		Logger:       logger,
		Tracer:       providers.Tracer,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}

	summary := rc.stepLoop(cmd.Context(), exec, cfg, logger)

	if rc.saveScope != "" {
		saveErr := saveScope(root, prog, rc.saveScope, logger)
		if saveErr != nil {
			return saveErr
		}
	}

	printSummary(cmd.OutOrStdout(), prog.Name, cfg.Run.Fetches, summary)

	if rc.plotPath != "" {
		plotErr := writeFootprintChart(rc.plotPath, prog.Name, summary.footprints)
		if plotErr != nil {
			return plotErr
		}

		logger.Info("wrote footprint chart", "path", rc.plotPath)
	}

	return nil
}

// stepLoop runs the configured number of steps. A failed step is
// reported and the loop proceeds; retry policy belongs to the caller.
func (rc *RunCommand) stepLoop(
	ctx context.Context, exec *executor.Executor, cfg *config.Config, logger *slog.Logger,
) *runSummary {
	summary := newRunSummary()

	for step := 1; step <= cfg.Run.Steps; step++ {
		start := time.Now()

		results, runErr := exec.Run(ctx, cfg.Run.Fetches)

		summary.record(time.Since(start), exec.TransientFootprints(), exec.StepsSinceDrop() == 0, runErr)

		if runErr != nil {
			logger.Error("step failed", "step", step, "error", runErr)

			if ctx.Err() != nil {
				break
			}

			continue
		}

		summary.lastResults = results
	}

	return summary
}

func (rc *RunCommand) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("steps") {
		cfg.Run.Steps = rc.steps
	}

	if flags.Changed("workers") {
		cfg.Executor.Workers = rc.workers
	}

	if flags.Changed("drop-every") {
		cfg.Executor.StepsPerDrop = rc.dropEvery
	}

	if flags.Changed("fetch") {
		cfg.Run.Fetches = rc.fetches
	}

	if flags.Changed("place") {
		cfg.Executor.Places = rc.places
	}

	if flags.Changed("metrics-listen") {
		cfg.Observability.MetricsListen = rc.metricsListen
	}

	if flags.Changed("otlp-endpoint") {
		cfg.Observability.OTLPEndpoint = rc.otlpEndpoint
	}

	if flags.Changed("log-json") {
		cfg.Observability.LogJSON = rc.logJSON
	}
}

func (rc *RunCommand) initObservability(cfg *config.Config) (observability.Providers, error) {
	level, err := cfg.Observability.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	if rc.verbose {
		level = slog.LevelDebug
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Observability.LogJSON

	return observability.Init(obsCfg)
}

// setupMetrics builds the step metrics and, when a listen address is
// configured, serves them on a Prometheus scrape endpoint. The returned
// stop function shuts the endpoint down.
func (rc *RunCommand) setupMetrics(
	cfg *config.Config, providers observability.Providers, logger *slog.Logger,
) (*observability.StepMetrics, func(), error) {
	if cfg.Observability.MetricsListen == "" {
		metrics, err := observability.NewStepMetrics(providers.Meter)
		if err != nil {
			return nil, nil, err
		}

		return metrics, func() {}, nil
	}

	handler, provider, err := observability.PrometheusHandler()
	if err != nil {
		return nil, nil, err
	}

	metrics, err := observability.NewStepMetrics(provider.Meter("tensorfang"))
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:              cfg.Observability.MetricsListen,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		serveErr := server.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", serveErr)
		}
	}()

	logger.Info("serving metrics", "addr", cfg.Observability.MetricsListen)

	stop := func() {
		shutdownErr := server.Shutdown(context.Background())
		if shutdownErr != nil {
			logger.Error("metrics server shutdown", "error", shutdownErr)
		}
	}

	return metrics, stop, nil
}

func buildEngine(
	name string, prog *program.Program, scopes []*scope.Scope, places []place.Place,
) (executor.Engine, error) {
	switch name {
	case engineSerial:
		eng, err := engine.NewSerial(prog, scopes, places)
		if err != nil {
			return nil, err
		}

		return eng, nil
	case engineParallel:
		eng, err := engine.NewParallel(prog, scopes, places)
		if err != nil {
			return nil, err
		}

		return eng, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// restoreScope loads the newest snapshot from dir into the persistent
// scope, so the executor's classifier finds the variables already
// materialized and skips re-creating them.
func restoreScope(root *scope.Scope, dir string, logger *slog.Logger) error {
	candidates := []string{
		filepath.Join(dir, snapshotBasename+".gob.lz4"),
		filepath.Join(dir, snapshotBasename+".gob"),
	}

	for _, path := range candidates {
		_, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}

		codec, err := checkpoint.CodecFor(path)
		if err != nil {
			return err
		}

		snap, err := checkpoint.Load(path, codec)
		if err != nil {
			return err
		}

		err = checkpoint.Restore(root, snap)
		if err != nil {
			return err
		}

		logger.Info("restored persistent scope", "path", path, "vars", len(snap.Vars))

		return nil
	}

	return fmt.Errorf("%w: %s", ErrNoSnapshot, dir)
}

func saveScope(root *scope.Scope, prog *program.Program, dir string, logger *slog.Logger) error {
	names := make([]string, 0, len(prog.Vars))

	for _, info := range prog.Vars {
		if info.Persistable {
			names = append(names, info.Name)
		}
	}

	snap := checkpoint.Capture(root, names)

	err := checkpoint.Save(dir, snapshotBasename, checkpoint.NewLZ4Codec(), snap)
	if err != nil {
		return err
	}

	logger.Info("saved persistent scope", "dir", dir, "vars", len(snap.Vars))

	return nil
}
