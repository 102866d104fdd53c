package checkpoint_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tensorfang/internal/checkpoint"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

// seedScope builds a scope with one allocated dense variable plus a
// sparse variable, an unset slot, and an unallocated dense variable.
func seedScope(t *testing.T) *scope.Scope {
	t.Helper()

	s := scope.New()

	w, err := s.Var("w").Dense()
	require.NoError(t, err)

	w.Resize(tensor.F32, []int64{2, 2})
	copy(w.F32(), []float32{1, 2, 3, 4})

	_, err = s.Var("rows").SparseRows()
	require.NoError(t, err)

	s.Var("ghost")

	_, err = s.Var("empty").Dense()
	require.NoError(t, err)

	return s
}

func TestCaptureSelectsAllocatedDense(t *testing.T) {
	t.Parallel()

	s := seedScope(t)

	snap := checkpoint.Capture(s, []string{"w", "rows", "ghost", "empty", "missing"})

	require.Len(t, snap.Vars, 1)

	rec, ok := snap.Vars["w"]
	require.True(t, ok)
	assert.Equal(t, "f32", rec.DType)
	assert.Equal(t, []int64{2, 2}, rec.Dims)
	assert.Len(t, rec.Data, 16)

	// Capturing must not type the unset slot as a side effect.
	assert.Equal(t, scope.KindUnset, s.FindVar("ghost").Kind())
}

func TestCaptureCopiesData(t *testing.T) {
	t.Parallel()

	s := seedScope(t)
	snap := checkpoint.Capture(s, []string{"w"})

	// Mutating the live tensor must not change the captured record.
	w, err := s.FindVar("w").Dense()
	require.NoError(t, err)
	w.F32()[0] = 99

	restored := scope.New()
	require.NoError(t, checkpoint.Restore(restored, snap))

	got, err := restored.FindVar("w").Dense()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, got.F32())
}

func TestSaveLoadRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		codec checkpoint.Codec
	}{
		{name: "gob", codec: checkpoint.NewGobCodec()},
		{name: "lz4", codec: checkpoint.NewLZ4Codec()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			snap := checkpoint.Capture(seedScope(t), []string{"w"})

			require.NoError(t, checkpoint.Save(dir, "model", tt.codec, snap))

			path := filepath.Join(dir, "model"+tt.codec.Extension())

			loaded, err := checkpoint.Load(path, tt.codec)
			require.NoError(t, err)

			restored := scope.New()
			require.NoError(t, checkpoint.Restore(restored, loaded))

			w, err := restored.FindVar("w").Dense()
			require.NoError(t, err)
			assert.Equal(t, tensor.F32, w.DType())
			assert.Equal(t, []int64{2, 2}, w.Dims())
			assert.Equal(t, []float32{1, 2, 3, 4}, w.F32())
		})
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "snapshots")
	snap := checkpoint.Capture(seedScope(t), []string{"w"})

	require.NoError(t, checkpoint.Save(dir, "model", checkpoint.NewGobCodec(), snap))

	_, err := checkpoint.Load(filepath.Join(dir, "model.gob"), checkpoint.NewGobCodec())
	assert.NoError(t, err)
}

func TestRestoreOverwritesExisting(t *testing.T) {
	t.Parallel()

	snap := checkpoint.Capture(seedScope(t), []string{"w"})

	target := scope.New()

	stale, err := target.Var("w").Dense()
	require.NoError(t, err)
	stale.Resize(tensor.F64, []int64{8})

	require.NoError(t, checkpoint.Restore(target, snap))

	w, err := target.FindVar("w").Dense()
	require.NoError(t, err)
	assert.Equal(t, tensor.F32, w.DType())
	assert.Equal(t, []int64{2, 2}, w.Dims())
	assert.Equal(t, []float32{1, 2, 3, 4}, w.F32())
}

func TestRestoreRejectsBadRecords(t *testing.T) {
	t.Parallel()

	t.Run("size mismatch", func(t *testing.T) {
		t.Parallel()

		snap := &checkpoint.Snapshot{Vars: map[string]checkpoint.VarRecord{
			"w": {DType: "f32", Dims: []int64{4}, Data: []byte{1, 2}},
		}}

		err := checkpoint.Restore(scope.New(), snap)
		assert.ErrorIs(t, err, checkpoint.ErrRecordSize)
	})

	t.Run("unknown dtype", func(t *testing.T) {
		t.Parallel()

		snap := &checkpoint.Snapshot{Vars: map[string]checkpoint.VarRecord{
			"w": {DType: "f16", Dims: []int64{1}, Data: []byte{0, 0}},
		}}

		err := checkpoint.Restore(scope.New(), snap)
		assert.ErrorIs(t, err, tensor.ErrUnknownDType)
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := checkpoint.Load(filepath.Join(t.TempDir(), "absent.gob"), checkpoint.NewGobCodec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open snapshot file")
}
