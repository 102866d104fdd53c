package program

import "github.com/Sumatoshi-tech/tensorfang/pkg/safeconv"

// OpDesc describes one operation: its registered type, named input and
// output slots holding variable names, and free-form attributes.
type OpDesc struct {
	Type    string              `yaml:"type"`
	Inputs  map[string][]string `yaml:"inputs"`
	Outputs map[string][]string `yaml:"outputs"`
	Attrs   map[string]any      `yaml:"attrs"`
}

// Input returns the variable names bound to an input slot.
func (op *OpDesc) Input(slot string) []string {
	return op.Inputs[slot]
}

// Output returns the variable names bound to an output slot.
func (op *OpDesc) Output(slot string) []string {
	return op.Outputs[slot]
}

// Attr returns the raw attribute value and whether it is present.
func (op *OpDesc) Attr(name string) (any, bool) {
	v, ok := op.Attrs[name]

	return v, ok
}

// IntAttr returns an integer attribute, or def when absent or not a
// number.
func (op *OpDesc) IntAttr(name string, def int) int {
	if raw, ok := op.Attrs[name]; ok {
		if n, numeric := safeconv.ToInt(raw); numeric {
			return n
		}
	}

	return def
}

// FloatAttr returns a float attribute, or def when absent or not a
// number.
func (op *OpDesc) FloatAttr(name string, def float64) float64 {
	if raw, ok := op.Attrs[name]; ok {
		if f, numeric := safeconv.ToFloat64(raw); numeric {
			return f
		}
	}

	return def
}

// StrAttr returns a string attribute, or def when absent or not a
// string.
func (op *OpDesc) StrAttr(name, def string) string {
	if raw, ok := op.Attrs[name]; ok {
		if s, isStr := raw.(string); isStr {
			return s
		}
	}

	return def
}

// DimsAttr returns a shape attribute as []int64 and whether every
// element was numeric.
func (op *OpDesc) DimsAttr(name string) ([]int64, bool) {
	raw, ok := op.Attrs[name]
	if !ok {
		return nil, false
	}

	items, isList := raw.([]any)
	if !isList {
		return nil, false
	}

	dims := make([]int64, len(items))
	for i, item := range items {
		n, numeric := safeconv.ToInt(item)
		if !numeric {
			return nil, false
		}

		dims[i] = int64(n)
	}

	return dims, true
}
