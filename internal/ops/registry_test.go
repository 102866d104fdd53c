package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tensorfang/internal/ops"
	"github.com/Sumatoshi-tech/tensorfang/internal/program"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
)

func TestLookupUnknownOp(t *testing.T) {
	t.Parallel()

	_, err := ops.Lookup("warp_drive")
	assert.ErrorIs(t, err, ops.ErrUnknownOp)
}

func TestLookupBuiltins(t *testing.T) {
	t.Parallel()

	for _, opType := range []string{"fill_constant", "uniform_random", "scale", "sum", "coalesce"} {
		kernel, err := ops.Lookup(opType)
		require.NoError(t, err, opType)
		assert.NotNil(t, kernel, opType)
	}
}

// TestRegisterDuplicatePanics mutates the package-global kernel table, so it
// must not run while parallel tests call Lookup.
func TestRegisterDuplicatePanics(t *testing.T) {
	noop := func(*program.OpDesc, *scope.Scope) error { return nil }

	ops.Register("registry_test_dup", noop)

	assert.Panics(t, func() {
		ops.Register("registry_test_dup", noop)
	})
}

func TestRunDispatches(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Var("out")

	op := &program.OpDesc{
		Type:    "fill_constant",
		Outputs: map[string][]string{"Out": {"out"}},
		Attrs:   map[string]any{"shape": []any{2}, "value": 3.0},
	}

	require.NoError(t, ops.Run(op, s))

	dense, err := s.Var("out").Dense()
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3}, dense.F32())
}

func TestRunUnknownOp(t *testing.T) {
	t.Parallel()

	err := ops.Run(&program.OpDesc{Type: "warp_drive"}, scope.New())
	assert.ErrorIs(t, err, ops.ErrUnknownOp)
}
