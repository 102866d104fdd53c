package executor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/tensorfang/internal/place"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
)

// DropTransients reclaims every worker's transient scope: outstanding
// device work is synchronized first, then non-preserved variables are
// erased, child scopes are dropped, and preserved variables are cleared
// in place. The counter resets so the next Run starts a fresh cycle.
//
// Run calls this automatically every StepsPerDrop steps; callers may
// also force a drop between steps.
func (e *Executor) DropTransients(ctx context.Context) {
	ctx, span := e.tracer().Start(ctx, "tensorfang.drop_scopes",
		trace.WithAttributes(attribute.Int("executor.workers", len(e.workers))))
	defer span.End()

	e.steps = 0

	e.waitPlaces()

	for idx := range e.workers {
		transient := e.workers[idx].Transient

		// Preserved slots are re-resolved by name on every drop. The
		// kept bindings survive EraseExcept, so the same resolution
		// yields the slots to clear afterwards.
		keep := make(map[*scope.Variable]struct{}, len(e.preserved[idx]))

		for name := range e.preserved[idx] {
			if v := transient.FindVar(name); v != nil {
				keep[v] = struct{}{}
			}
		}

		transient.EraseExcept(keep)
		transient.DropKids()

		for name := range e.preserved[idx] {
			if v := transient.FindVar(name); v != nil {
				v.Clear()
			}
		}

		e.logger.DebugContext(ctx, "dropped transient scope", "worker", idx)
	}

	e.metrics.RecordDrop(ctx)
}

// waitPlaces blocks until every distinct device place in use has
// finished its outstanding asynchronous work. Erasing transient
// storage while device work is still in flight would let that work
// touch freed memory.
func (e *Executor) waitPlaces() {
	if e.pool == nil {
		return
	}

	waited := make(map[place.Place]struct{}, len(e.workers))

	for _, worker := range e.workers {
		if _, done := waited[worker.Place]; done {
			continue
		}

		waited[worker.Place] = struct{}{}
		e.pool.Get(worker.Place).Wait()
	}
}
