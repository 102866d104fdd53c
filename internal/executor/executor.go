// Package executor implements a scope-buffered step executor for tensor
// dataflow programs. Creating and tearing down every intermediate
// variable on every step is expensive, so the executor keeps each
// worker's transient scope alive across steps and reclaims it in bulk
// every StepsPerDrop steps. Persistable variables live in a shared
// persistent scope that reclamation never touches.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/tensorfang/internal/observability"
	"github.com/Sumatoshi-tech/tensorfang/internal/place"
	"github.com/Sumatoshi-tech/tensorfang/internal/program"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

var (
	// ErrMissingEngine reports construction without an engine.
	ErrMissingEngine = errors.New("missing engine")

	// ErrNoWorkers reports construction without workers.
	ErrNoWorkers = errors.New("no workers")

	// ErrBadStepsPerDrop reports a non-positive drop interval.
	ErrBadStepsPerDrop = errors.New("steps per drop must be positive")

	// ErrIncompleteWorker reports a worker missing one of its scopes.
	ErrIncompleteWorker = errors.New("worker needs persistent and transient scopes")
)

// tracerName is the default OTel tracer name for the executor package.
const tracerName = "tensorfang"

// Engine runs one step of the dataflow program over all workers and
// returns the requested fetch values. An engine failure is handed back
// to the executor's caller verbatim.
type Engine interface {
	Run(ctx context.Context, fetches []string) ([]*tensor.Dense, error)
}

// Worker pairs one data-parallel replica's scopes with its device
// place. The persistent scope may be shared across workers; the
// transient scope is owned exclusively by this worker.
type Worker struct {
	Persistent *scope.Scope
	Transient  *scope.Scope
	Place      place.Place
}

// Config carries everything an Executor needs. Pool, Logger, Tracer
// and Metrics are optional.
type Config struct {
	// StepsPerDrop is the number of steps per reclamation cycle.
	StepsPerDrop int

	// Workers are the parallel replicas, one per device place.
	Workers []Worker

	// Vars declares every variable the program touches.
	Vars []program.VarInfo

	// Engine executes one step over all workers.
	Engine Engine

	// Program supplies fused-variable names and per-cycle init blocks.
	// Nil means no fused initialization runs.
	Program *program.Program

	// Pool synchronizes outstanding device work before reclamation.
	// Nil skips the barrier.
	Pool *place.Pool

	// Logger receives footprint and lifecycle diagnostics.
	// When nil, falls back to slog.Default().
	Logger *slog.Logger

	// Tracer is the OTel tracer for init and drop spans.
	// When nil, falls back to otel.Tracer("tensorfang").
	Tracer trace.Tracer

	// Metrics receives step, drop and footprint telemetry.
	Metrics *observability.StepMetrics
}

// initSlot names one transient variable and the kind it must be reset
// to at the start of each buffering cycle. Slots are re-resolved by
// name every cycle; pointers captured at construction would dangle
// after reclamation erases and recreates bindings.
type initSlot struct {
	name string
	kind scope.Kind
}

// Executor wraps an Engine with scope buffering: per-cycle variable
// initialization, per-step bookkeeping, and periodic reclamation of
// the workers' transient scopes.
type Executor struct {
	stepsPerDrop int
	workers      []Worker
	engine       Engine
	prog         *program.Program
	pool         *place.Pool
	logger       *slog.Logger
	otelTracer   trace.Tracer
	metrics      *observability.StepMetrics

	// preserved holds, per worker, the transient variable names that
	// survive reclamation. Fixed at construction.
	preserved []map[string]struct{}

	// inits holds, per worker, the slots to re-initialize whenever a
	// buffering cycle begins. Fixed at construction.
	inits [][]initSlot

	// steps counts completed steps since the last reclamation.
	steps int
}

// New validates the configuration and classifies every declared
// variable into the workers' scopes: persistable variables materialize
// once in the persistent scope, everything else becomes a tracked
// transient slot.
func New(cfg Config) (*Executor, error) {
	if cfg.Engine == nil {
		return nil, ErrMissingEngine
	}

	if len(cfg.Workers) == 0 {
		return nil, ErrNoWorkers
	}

	if cfg.StepsPerDrop < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadStepsPerDrop, cfg.StepsPerDrop)
	}

	for i, worker := range cfg.Workers {
		if worker.Persistent == nil || worker.Transient == nil {
			return nil, fmt.Errorf("%w: worker %d", ErrIncompleteWorker, i)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exec := &Executor{
		stepsPerDrop: cfg.StepsPerDrop,
		workers:      cfg.Workers,
		engine:       cfg.Engine,
		prog:         cfg.Program,
		pool:         cfg.Pool,
		logger:       logger,
		otelTracer:   cfg.Tracer,
		metrics:      cfg.Metrics,
		preserved:    make([]map[string]struct{}, len(cfg.Workers)),
		inits:        make([][]initSlot, len(cfg.Workers)),
	}

	if err := exec.prepareScopes(cfg.Vars); err != nil {
		return nil, err
	}

	return exec, nil
}

// prepareScopes partitions the declared variables. Workers are visited
// in reverse order; the order is irrelevant for correctness but keeps
// diagnostics reproducible. Creation is idempotent: a persistable
// variable already present in the persistent scope is left untouched,
// so pre-seeded state from a checkpoint or an outer caller survives.
func (e *Executor) prepareScopes(vars []program.VarInfo) error {
	for idx := len(e.workers) - 1; idx >= 0; idx-- {
		worker := e.workers[idx]
		e.preserved[idx] = make(map[string]struct{})

		for _, info := range vars {
			if info.Persistable {
				if worker.Persistent.FindVar(info.Name) != nil {
					e.logger.Debug("persistable variable already present, skipping",
						"var", info.Name, "worker", idx)

					continue
				}

				if err := worker.Persistent.Var(info.Name).InitAs(info.Kind); err != nil {
					return fmt.Errorf("persistable %q: %w", info.Name, err)
				}

				continue
			}

			worker.Transient.Var(info.Name)
			e.preserved[idx][info.Name] = struct{}{}
			e.inits[idx] = append(e.inits[idx], initSlot{name: info.Name, kind: info.Kind})
		}
	}

	return nil
}

// tracer returns the configured tracer, falling back to the global
// provider.
func (e *Executor) tracer() trace.Tracer {
	if e.otelTracer != nil {
		return e.otelTracer
	}

	return otel.Tracer(tracerName)
}

// StepsSinceDrop returns the number of completed steps in the current
// buffering cycle.
func (e *Executor) StepsSinceDrop() int {
	return e.steps
}

// TransientFootprints returns each worker's current transient scope
// footprint in bytes, deduplicated by backing allocation.
func (e *Executor) TransientFootprints() []uint64 {
	sizes := make([]uint64, len(e.workers))
	for idx, worker := range e.workers {
		sizes[idx] = scope.FootprintBytes(worker.Transient)
	}

	return sizes
}
