package program_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tensorfang/internal/program"
)

func TestOpDescAttrGetters(t *testing.T) {
	t.Parallel()

	op := &program.OpDesc{
		Type: "fill_constant",
		Attrs: map[string]any{
			"shape": []any{2, 3},
			"dtype": "f32",
			"value": 1.5,
			"seed":  7,
			"label": 42,
		},
	}

	assert.Equal(t, 7, op.IntAttr("seed", 0))
	assert.Equal(t, 0, op.IntAttr("missing", 0))
	assert.Equal(t, 9, op.IntAttr("dtype", 9), "non-numeric falls back")

	assert.InDelta(t, 1.5, op.FloatAttr("value", 0), 0)
	assert.InDelta(t, 7.0, op.FloatAttr("seed", 0), 0, "ints widen")
	assert.InDelta(t, 2.5, op.FloatAttr("missing", 2.5), 0)

	assert.Equal(t, "f32", op.StrAttr("dtype", "f64"))
	assert.Equal(t, "f64", op.StrAttr("missing", "f64"))
	assert.Equal(t, "f64", op.StrAttr("label", "f64"), "non-string falls back")

	dims, ok := op.DimsAttr("shape")
	require.True(t, ok)
	assert.Equal(t, []int64{2, 3}, dims)

	_, ok = op.DimsAttr("missing")
	assert.False(t, ok)

	_, ok = op.DimsAttr("dtype")
	assert.False(t, ok)
}

func TestOpDescSlots(t *testing.T) {
	t.Parallel()

	op := &program.OpDesc{
		Type:    "sum",
		Inputs:  map[string][]string{"X": {"a", "b"}},
		Outputs: map[string][]string{"Out": {"c"}},
	}

	assert.Equal(t, []string{"a", "b"}, op.Input("X"))
	assert.Equal(t, []string{"c"}, op.Output("Out"))
	assert.Nil(t, op.Input("absent"))

	raw, ok := op.Attr("anything")
	assert.False(t, ok)
	assert.Nil(t, raw)
}

func TestDimsAttrMixedTypes(t *testing.T) {
	t.Parallel()

	op := &program.OpDesc{Attrs: map[string]any{
		"good":  []any{1, 2.0, int64(3)},
		"mixed": []any{1, "two"},
	}}

	dims, ok := op.DimsAttr("good")
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, dims)

	_, ok = op.DimsAttr("mixed")
	assert.False(t, ok)
}
