// Package safeconv provides safe numeric conversions for values crossing
// type boundaries, such as decoded attributes and byte-size accounting.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// ToInt converts a dynamically typed numeric value to int.
// Returns false for unsupported types.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// ToFloat64 converts a dynamically typed numeric value to float64.
// Returns false for unsupported types.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// SafeInt converts uint64 to int, clamping to MaxInt on overflow.
func SafeInt(v uint64) int {
	if v > uint64(MaxInt) {
		return MaxInt
	}

	return int(v)
}

// SafeInt64 converts uint64 to int64, clamping to MaxInt64 on overflow.
func SafeInt64(v uint64) int64 {
	if v > uint64(math.MaxInt64) {
		return math.MaxInt64
	}

	return int64(v)
}
