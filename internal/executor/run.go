package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/tensorfang/internal/ops"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

// Run executes one step: initialize the cycle's variables when this is
// the cycle's first step, delegate to the engine, then complete the
// per-step bookkeeping before surfacing the engine's outcome.
//
// An engine failure never short-circuits bookkeeping. The footprint
// diagnostics, the step counter and a scheduled reclamation all happen
// exactly as on a successful step, and the error is returned verbatim
// afterwards. A transient failure therefore cannot desynchronize the
// buffering cycle.
func (e *Executor) Run(ctx context.Context, fetches []string) ([]*tensor.Dense, error) {
	if e.steps == 0 {
		if err := e.initVariables(ctx); err != nil {
			return nil, fmt.Errorf("init variables: %w", err)
		}
	}

	start := time.Now()

	results, runErr := e.engine.Run(ctx, fetches)

	e.observeFootprints(ctx, "transient footprint before drop")

	e.steps++
	e.metrics.RecordStep(ctx, time.Since(start), runErr)

	if e.steps == e.stepsPerDrop {
		e.DropTransients(ctx)
	}

	e.observeFootprints(ctx, "transient footprint after drop")

	if runErr != nil {
		return nil, runErr
	}

	return results, nil
}

// initVariables restores the cycle invariant that every tracked
// transient slot is an empty, correctly typed payload, then runs the
// program's fused initialization: fused variables materialize as dense
// slots and each init block's ops run once per worker.
func (e *Executor) initVariables(ctx context.Context) error {
	ctx, span := e.tracer().Start(ctx, "tensorfang.init_vars",
		trace.WithAttributes(attribute.Int("executor.workers", len(e.workers))))
	defer span.End()

	for idx := range e.workers {
		transient := e.workers[idx].Transient

		for _, slot := range e.inits[idx] {
			if err := transient.Var(slot.name).InitAs(slot.kind); err != nil {
				return fmt.Errorf("worker %d variable %q: %w", idx, slot.name, err)
			}
		}
	}

	if e.prog == nil || len(e.prog.InitPrograms) == 0 {
		return nil
	}

	for idx := range e.workers {
		transient := e.workers[idx].Transient

		for _, name := range e.prog.FusedVars {
			if transient.FindVar(name) != nil {
				continue
			}

			if _, err := transient.Var(name).Dense(); err != nil {
				return fmt.Errorf("fused variable %q: %w", name, err)
			}
		}
	}

	for bi, block := range e.prog.InitPrograms {
		for oi := range block {
			for idx := range e.workers {
				if err := ops.Run(&block[oi], e.workers[idx].Transient); err != nil {
					return fmt.Errorf("init block %d op %d worker %d (%s): %w",
						bi, oi, idx, e.workers[idx].Place, err)
				}
			}
		}
	}

	return nil
}

// observeFootprints walks each worker's transient scope once, emitting
// the deduplicated footprint to the debug log and the footprint gauge.
// The walk is skipped entirely when neither consumer is active.
func (e *Executor) observeFootprints(ctx context.Context, msg string) {
	logging := e.logger.Enabled(ctx, slog.LevelDebug)
	if !logging && e.metrics == nil {
		return
	}

	for idx, worker := range e.workers {
		size := scope.FootprintBytes(worker.Transient)

		if logging {
			e.logger.DebugContext(ctx, msg, "worker", idx, "size", humanize.Bytes(size))
		}

		e.metrics.RecordFootprint(ctx, idx, size)
	}
}
