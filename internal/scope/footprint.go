package scope

import "github.com/Sumatoshi-tech/tensorfang/internal/tensor"

// FootprintBytes returns the total size of the distinct allocations
// reachable from the scope and all of its descendants. An allocation
// referenced through several variables or views is counted once.
func FootprintBytes(root *Scope) uint64 {
	seen := make(map[*tensor.Allocation]struct{})

	return footprint(root, seen)
}

func footprint(s *Scope, seen map[*tensor.Allocation]struct{}) uint64 {
	var total uint64

	for _, v := range s.vars {
		total += variableBytes(v, seen)
	}

	for _, kid := range s.kids {
		total += footprint(kid, seen)
	}

	return total
}

func variableBytes(v *Variable, seen map[*tensor.Allocation]struct{}) uint64 {
	switch v.kind {
	case KindDense:
		return denseBytes(v.dense, seen)
	case KindSparseRows:
		return denseBytes(v.sparse.Value(), seen)
	case KindDenseArray:
		var total uint64
		for _, item := range *v.array {
			total += denseBytes(item, seen)
		}

		return total
	default:
		return 0
	}
}

func denseBytes(d *tensor.Dense, seen map[*tensor.Allocation]struct{}) uint64 {
	if d == nil || !d.Initialized() {
		return 0
	}

	alloc := d.Allocation()
	if _, dup := seen[alloc]; dup {
		return 0
	}

	seen[alloc] = struct{}{}

	return alloc.Size()
}
