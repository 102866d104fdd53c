// Package tensor provides the dense, sparse-row and array value types
// that flow through execution scopes, backed by shared byte allocations
// so that views alias rather than copy.
package tensor

import (
	"errors"
	"fmt"
)

// ErrUnknownDType reports an unrecognized element type name.
var ErrUnknownDType = errors.New("unknown dtype")

// DType identifies the element type of a dense tensor.
type DType uint8

// Supported element types.
const (
	F32 DType = iota
	F64
	I32
	I64
)

// Size returns the width of one element in bytes.
func (dt DType) Size() int {
	switch dt {
	case F32, I32:
		return 4
	case F64, I64:
		return 8
	default:
		return 0
	}
}

// String returns the lowercase name of the element type.
func (dt DType) String() string {
	switch dt {
	case F32:
		return "f32"
	case F64:
		return "f64"
	case I32:
		return "i32"
	case I64:
		return "i64"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(dt))
	}
}

// ParseDType maps a type name such as "f32" to its DType.
func ParseDType(name string) (DType, error) {
	switch name {
	case "f32", "float32":
		return F32, nil
	case "f64", "float64":
		return F64, nil
	case "i32", "int32":
		return I32, nil
	case "i64", "int64":
		return I64, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDType, name)
	}
}
