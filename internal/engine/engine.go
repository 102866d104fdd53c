// Package engine executes program steps over worker scopes. Each
// worker is a data-parallel replica: it runs the full op plan against
// its own transient scope, resolving shared parameters through the
// scope parent chain. The serial engine runs workers one after another;
// the parallel engine runs them concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/tensorfang/internal/ops"
	"github.com/Sumatoshi-tech/tensorfang/internal/place"
	"github.com/Sumatoshi-tech/tensorfang/internal/program"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

var (
	// ErrNoWorkers reports construction without worker scopes.
	ErrNoWorkers = errors.New("engine needs at least one worker")

	// ErrWorkerMismatch reports scope and place slices of different
	// lengths.
	ErrWorkerMismatch = errors.New("scope and place counts differ")

	// ErrCycle reports step ops whose dependencies form a cycle.
	ErrCycle = errors.New("op dependency cycle")

	// ErrBadFetch reports a fetch target that cannot be materialized.
	ErrBadFetch = errors.New("bad fetch")
)

type base struct {
	prog   *program.Program
	scopes []*scope.Scope
	places []place.Place
	order  []int
}

func newBase(prog *program.Program, scopes []*scope.Scope, places []place.Place) (base, error) {
	if len(scopes) == 0 {
		return base{}, ErrNoWorkers
	}

	if len(scopes) != len(places) {
		return base{}, fmt.Errorf("%w: %d scopes, %d places", ErrWorkerMismatch, len(scopes), len(places))
	}

	order, err := buildPlan(prog)
	if err != nil {
		return base{}, err
	}

	return base{prog: prog, scopes: scopes, places: places, order: order}, nil
}

// runWorker executes the planned ops against one worker's scope.
func (b *base) runWorker(ctx context.Context, idx int) error {
	s := b.scopes[idx]

	for _, oi := range b.order {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := ops.Run(&b.prog.Ops[oi], s); err != nil {
			return fmt.Errorf("worker %d (%s) op %d: %w", idx, b.places[idx], oi, err)
		}
	}

	return nil
}

// Serial runs workers one after another on the calling goroutine.
type Serial struct {
	base
}

// NewSerial builds a serial engine over the given worker scopes.
// scopes[i] runs at places[i].
func NewSerial(prog *program.Program, scopes []*scope.Scope, places []place.Place) (*Serial, error) {
	b, err := newBase(prog, scopes, places)
	if err != nil {
		return nil, err
	}

	return &Serial{base: b}, nil
}

// Run executes one step and returns the merged fetch results.
func (e *Serial) Run(ctx context.Context, fetches []string) ([]*tensor.Dense, error) {
	for i := range e.scopes {
		if err := e.runWorker(ctx, i); err != nil {
			return nil, err
		}
	}

	return e.collectFetches(fetches)
}

// Parallel runs every worker in its own goroutine.
type Parallel struct {
	base
}

// NewParallel builds a parallel engine over the given worker scopes.
// scopes[i] runs at places[i].
func NewParallel(prog *program.Program, scopes []*scope.Scope, places []place.Place) (*Parallel, error) {
	b, err := newBase(prog, scopes, places)
	if err != nil {
		return nil, err
	}

	return &Parallel{base: b}, nil
}

// Run executes one step with all workers concurrent and returns the
// merged fetch results. The first worker error cancels the rest.
func (e *Parallel) Run(ctx context.Context, fetches []string) ([]*tensor.Dense, error) {
	g, ctx := errgroup.WithContext(ctx)

	for i := range e.scopes {
		g.Go(func() error {
			return e.runWorker(ctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.collectFetches(fetches)
}
