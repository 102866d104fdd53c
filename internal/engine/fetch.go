package engine

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

// collectFetches resolves every fetch name in every worker scope and
// merges the per-worker pieces row-wise.
func (b *base) collectFetches(fetches []string) ([]*tensor.Dense, error) {
	results := make([]*tensor.Dense, len(fetches))

	for fi, name := range fetches {
		pieces := make([]*tensor.Dense, len(b.scopes))

		for wi, s := range b.scopes {
			v := s.Resolve(name)
			if v == nil {
				return nil, fmt.Errorf("%w: %q not in worker %d scope", ErrBadFetch, name, wi)
			}

			dense, err := v.Dense()
			if err != nil {
				return nil, fmt.Errorf("%w: %q in worker %d: %v", ErrBadFetch, name, wi, err)
			}

			if !dense.Initialized() {
				return nil, fmt.Errorf("%w: %q not initialized in worker %d", ErrBadFetch, name, wi)
			}

			pieces[wi] = dense
		}

		merged, err := mergePieces(pieces)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadFetch, name, err)
		}

		results[fi] = merged
	}

	return results, nil
}

// mergePieces concatenates per-worker tensors along the row dimension.
// A lone piece is copied as is; scalars stack into a vector.
func mergePieces(pieces []*tensor.Dense) (*tensor.Dense, error) {
	if len(pieces) == 1 {
		return pieces[0].Clone(), nil
	}

	first := pieces[0]
	tail := rowShape(first)

	var rows int64

	for wi, piece := range pieces {
		if piece.DType() != first.DType() {
			return nil, fmt.Errorf("worker %d dtype %s, worker 0 dtype %s", wi, piece.DType(), first.DType())
		}

		pieceTail := rowShape(piece)
		if !slices.Equal(pieceTail, tail) {
			return nil, fmt.Errorf("worker %d row shape %v, worker 0 row shape %v", wi, pieceTail, tail)
		}

		rows += rowCount(piece)
	}

	merged := tensor.NewDense(first.DType(), append([]int64{rows}, tail...))

	var off int

	for _, piece := range pieces {
		off += copy(merged.Bytes()[off:], piece.Bytes())
	}

	return merged, nil
}

// rowShape returns the shape of one row; scalars have an empty row
// shape and count as a single row.
func rowShape(d *tensor.Dense) []int64 {
	dims := d.Dims()
	if len(dims) == 0 {
		return nil
	}

	return dims[1:]
}

func rowCount(d *tensor.Dense) int64 {
	dims := d.Dims()
	if len(dims) == 0 {
		return 1
	}

	return dims[0]
}
