package engine

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/tensorfang/internal/program"
	"github.com/Sumatoshi-tech/tensorfang/pkg/toposort"
)

// buildPlan orders the program's step ops so every read sees the write
// it depends on. Manifests may list ops out of dependency order; the
// plan fixes that, and a genuine dependency cycle is an error.
func buildPlan(prog *program.Program) ([]int, error) {
	graph := toposort.NewGraph(len(prog.Ops))

	// Persistable and fused variables exist before the step starts, so
	// reading them needs no producing op.
	preExisting := make(map[string]bool, len(prog.Vars)+len(prog.FusedVars))

	for _, vi := range prog.Vars {
		if vi.Persistable {
			preExisting[vi.Name] = true
		}
	}

	for _, name := range prog.FusedVars {
		preExisting[name] = true
	}

	writers := make(map[string][]int)

	for i := range prog.Ops {
		for _, names := range prog.Ops[i].Outputs {
			for _, name := range names {
				writers[name] = append(writers[name], i)
			}
		}
	}

	// Writers of one variable keep their listed order.
	for _, ws := range writers {
		for k := 1; k < len(ws); k++ {
			graph.AddEdge(ws[k-1], ws[k])
		}
	}

	for r := range prog.Ops {
		for _, names := range prog.Ops[r].Inputs {
			for _, name := range names {
				addReadEdges(graph, writers[name], preExisting[name], r)
			}
		}
	}

	order, ok := graph.Sort()
	if !ok {
		return nil, cycleError(prog, graph, order)
	}

	return order, nil
}

// addReadEdges links the read at op r to the write it consumes and to
// the write that would clobber it.
func addReadEdges(graph *toposort.Graph, ws []int, preExisting bool, r int) {
	prior := -1

	for _, w := range ws {
		if w >= r {
			break
		}

		prior = w
	}

	// The write this read consumes.
	source := -1

	switch {
	case prior >= 0 && prior != r:
		source = prior
		graph.AddEdge(prior, r)
	case prior < 0 && !preExisting && len(ws) > 0 && ws[0] != r:
		source = ws[0]
		graph.AddEdge(ws[0], r)
	}

	// The next write must wait until this read happened.
	for _, w := range ws {
		if w <= r || w == source {
			continue
		}

		graph.AddEdge(r, w)

		break
	}
}

func cycleError(prog *program.Program, graph *toposort.Graph, partial []int) error {
	placed := make(map[int]struct{}, len(partial))
	for _, id := range partial {
		placed[id] = struct{}{}
	}

	for id := range prog.Ops {
		if _, ok := placed[id]; ok {
			continue
		}

		cycle := graph.FindCycle(id)
		if cycle == nil {
			continue
		}

		names := make([]string, len(cycle))
		for i, op := range cycle {
			names[i] = fmt.Sprintf("%d:%s", op, prog.Ops[op].Type)
		}

		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> "))
	}

	return ErrCycle
}
