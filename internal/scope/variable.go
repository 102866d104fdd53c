// Package scope implements the variable namespace tree for program
// execution. A persistent scope owns long-lived parameters; transient
// child scopes hold per-step intermediates and are reclaimed in bulk.
//
// Scopes are not safe for concurrent mutation. The executor confines
// each transient scope to one worker at a time and runs reclamation
// with no step in flight.
package scope

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

var (
	// ErrKindMismatch reports a typed access or initialization that
	// disagrees with the kind a variable already holds.
	ErrKindMismatch = errors.New("variable kind mismatch")

	// ErrUnknownKind reports an unrecognized kind name.
	ErrUnknownKind = errors.New("unknown variable kind")
)

// Kind identifies which payload a variable holds.
type Kind uint8

// Variable payload kinds.
const (
	KindUnset Kind = iota
	KindDense
	KindSparseRows
	KindDenseArray
)

// String returns the payload kind name.
func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindDense:
		return "dense"
	case KindSparseRows:
		return "sparse_rows"
	case KindDenseArray:
		return "dense_array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a kind name such as "dense" to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "dense":
		return KindDense, nil
	case "sparse_rows":
		return KindSparseRows, nil
	case "dense_array":
		return KindDenseArray, nil
	default:
		return KindUnset, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Variable is a named slot holding one tensor payload. A freshly
// created variable is unset; the first typed access or InitAs decides
// its kind. Clear returns it to unset without removing the slot.
type Variable struct {
	kind   Kind
	dense  *tensor.Dense
	sparse *tensor.SparseRows
	array  *tensor.Array
}

// Kind returns the payload kind currently held.
func (v *Variable) Kind() Kind {
	return v.kind
}

// InitAs attaches an empty payload of the given kind. Initializing an
// already matching variable is a no-op; a conflicting kind is an error.
// Unset is never a valid target; Clear is how a slot returns to unset.
func (v *Variable) InitAs(kind Kind) error {
	if kind == KindUnset {
		return fmt.Errorf("%w: cannot initialize as %s", ErrKindMismatch, kind)
	}

	if v.kind == kind {
		return nil
	}

	if v.kind != KindUnset {
		return fmt.Errorf("%w: have %s, want %s", ErrKindMismatch, v.kind, kind)
	}

	switch kind {
	case KindDense:
		v.dense = &tensor.Dense{}
	case KindSparseRows:
		v.sparse = tensor.NewSparseRows(0)
	case KindDenseArray:
		v.array = &tensor.Array{}
	default:
		return fmt.Errorf("%w: cannot initialize as %s", ErrKindMismatch, kind)
	}

	v.kind = kind

	return nil
}

// Clear drops the payload and returns the variable to unset.
func (v *Variable) Clear() {
	v.kind = KindUnset
	v.dense = nil
	v.sparse = nil
	v.array = nil
}

// Dense returns the dense payload, initializing an unset variable.
func (v *Variable) Dense() (*tensor.Dense, error) {
	if err := v.InitAs(KindDense); err != nil {
		return nil, err
	}

	return v.dense, nil
}

// SparseRows returns the sparse-rows payload, initializing an unset
// variable.
func (v *Variable) SparseRows() (*tensor.SparseRows, error) {
	if err := v.InitAs(KindSparseRows); err != nil {
		return nil, err
	}

	return v.sparse, nil
}

// Array returns the array payload, initializing an unset variable.
func (v *Variable) Array() (*tensor.Array, error) {
	if err := v.InitAs(KindDenseArray); err != nil {
		return nil, err
	}

	return v.array, nil
}
