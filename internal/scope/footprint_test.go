package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

func denseVar(t *testing.T, s *scope.Scope, name string, dims []int64) *tensor.Dense {
	t.Helper()

	dense, err := s.Var(name).Dense()
	require.NoError(t, err)
	dense.Resize(tensor.F32, dims)

	return dense
}

func TestFootprintCountsDistinctAllocations(t *testing.T) {
	t.Parallel()

	s := scope.New()
	denseVar(t, s, "a", []int64{4})  // 16 bytes
	denseVar(t, s, "b", []int64{10}) // 40 bytes

	assert.Equal(t, uint64(56), scope.FootprintBytes(s))
}

func TestFootprintDeduplicatesViews(t *testing.T) {
	t.Parallel()

	s := scope.New()
	base := denseVar(t, s, "base", []int64{8}) // 32 bytes

	view, err := base.View(2, []int64{4})
	require.NoError(t, err)

	viewed, err := s.Var("view").Dense()
	require.NoError(t, err)
	*viewed = *view

	// Both variables share one allocation; it counts once.
	assert.Equal(t, uint64(32), scope.FootprintBytes(s))
}

func TestFootprintRecursesIntoKids(t *testing.T) {
	t.Parallel()

	root := scope.New()
	denseVar(t, root, "w", []int64{2}) // 8 bytes

	kid := root.NewChild()
	denseVar(t, kid, "tmp", []int64{3}) // 12 bytes

	assert.Equal(t, uint64(20), scope.FootprintBytes(root))
	assert.Equal(t, uint64(12), scope.FootprintBytes(kid))
}

func TestFootprintSparseAndArray(t *testing.T) {
	t.Parallel()

	s := scope.New()

	sparse, err := s.Var("rows").SparseRows()
	require.NoError(t, err)
	sparse.Value().Resize(tensor.F64, []int64{2, 2}) // 32 bytes

	arr, err := s.Var("steps").Array()
	require.NoError(t, err)
	*arr = append(*arr,
		tensor.NewDense(tensor.I32, []int64{5}), // 20 bytes
		tensor.NewDense(tensor.I32, []int64{1}), // 4 bytes
	)

	assert.Equal(t, uint64(56), scope.FootprintBytes(s))
}

func TestFootprintSkipsUninitialized(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Var("unset")

	_, err := s.Var("empty_dense").Dense()
	require.NoError(t, err)

	assert.Equal(t, uint64(0), scope.FootprintBytes(s))
}
