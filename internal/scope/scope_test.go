package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

func TestVarCreatesOnce(t *testing.T) {
	t.Parallel()

	s := scope.New()

	first := s.Var("x")
	second := s.Var("x")

	assert.Same(t, first, second)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, scope.KindUnset, first.Kind())
}

func TestFindVarIsLocal(t *testing.T) {
	t.Parallel()

	parent := scope.New()
	parent.Var("w")

	kid := parent.NewChild()

	assert.Nil(t, kid.FindVar("w"))
	assert.NotNil(t, parent.FindVar("w"))
}

func TestResolveClimbs(t *testing.T) {
	t.Parallel()

	root := scope.New()
	w := root.Var("w")

	kid := root.NewChild()
	grandkid := kid.NewChild()

	assert.Same(t, w, grandkid.Resolve("w"))
	assert.Nil(t, grandkid.Resolve("missing"))

	// A local definition shadows the ancestor's.
	local := grandkid.Var("w")
	assert.Same(t, local, grandkid.Resolve("w"))
	assert.NotSame(t, w, local)
}

func TestVarNamesSorted(t *testing.T) {
	t.Parallel()

	s := scope.New()
	s.Var("zeta")
	s.Var("alpha")
	s.Var("mid")

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.VarNames())
}

func TestEraseExcept(t *testing.T) {
	t.Parallel()

	s := scope.New()
	kept := s.Var("kept")
	s.Var("dropped_a")
	s.Var("dropped_b")

	s.EraseExcept(map[*scope.Variable]struct{}{kept: {}})

	assert.Equal(t, []string{"kept"}, s.VarNames())
	assert.Same(t, kept, s.FindVar("kept"))
}

func TestDropKids(t *testing.T) {
	t.Parallel()

	root := scope.New()
	kid := root.NewChild()
	require.Same(t, root, kid.Parent())
	require.Len(t, root.Kids(), 1)

	root.DropKids()

	assert.Empty(t, root.Kids())
	assert.Nil(t, kid.Parent())
}

func TestInitAs(t *testing.T) {
	t.Parallel()

	v := &scope.Variable{}

	require.NoError(t, v.InitAs(scope.KindDense))
	assert.Equal(t, scope.KindDense, v.Kind())

	// Same kind again is a no-op.
	require.NoError(t, v.InitAs(scope.KindDense))

	// Conflicting kind is rejected.
	err := v.InitAs(scope.KindSparseRows)
	assert.ErrorIs(t, err, scope.ErrKindMismatch)

	// Unset is never a valid target.
	assert.ErrorIs(t, (&scope.Variable{}).InitAs(scope.KindUnset), scope.ErrKindMismatch)
}

func TestClearResetsKind(t *testing.T) {
	t.Parallel()

	v := &scope.Variable{}
	dense, err := v.Dense()
	require.NoError(t, err)

	dense.Resize(tensor.F32, []int64{4})
	require.Equal(t, scope.KindDense, v.Kind())

	v.Clear()

	assert.Equal(t, scope.KindUnset, v.Kind())

	// After Clear the slot can take a different kind.
	_, err = v.SparseRows()
	require.NoError(t, err)
	assert.Equal(t, scope.KindSparseRows, v.Kind())
}

func TestTypedAccessors(t *testing.T) {
	t.Parallel()

	v := &scope.Variable{}

	dense, err := v.Dense()
	require.NoError(t, err)
	require.NotNil(t, dense)

	// Reaccess returns the same payload.
	again, err := v.Dense()
	require.NoError(t, err)
	assert.Same(t, dense, again)

	_, err = v.Array()
	assert.ErrorIs(t, err, scope.ErrKindMismatch)
}
