package ops

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Sumatoshi-tech/tensorfang/internal/program"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

func init() {
	Register("fill_constant", runFillConstant)
	Register("uniform_random", runUniformRandom)
	Register("scale", runScale)
	Register("sum", runSum)
	Register("coalesce", runCoalesce)
}

// runFillConstant writes a constant into a freshly shaped dense output.
//
// Attrs: shape (required), dtype (default f32), value (default 0).
func runFillConstant(op *program.OpDesc, s *scope.Scope) error {
	out, err := singleOutput(op, s, "Out")
	if err != nil {
		return err
	}

	dims, ok := op.DimsAttr("shape")
	if !ok {
		return fmt.Errorf("%w: missing shape attr", ErrBadOp)
	}

	dtype, err := tensor.ParseDType(op.StrAttr("dtype", "f32"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadOp, err)
	}

	value := op.FloatAttr("value", 0)

	out.Resize(dtype, dims)

	switch dtype {
	case tensor.F32:
		fill(out.F32(), float32(value))
	case tensor.F64:
		fill(out.F64(), value)
	case tensor.I32:
		fill(out.I32(), int32(value))
	case tensor.I64:
		fill(out.I64(), int64(value))
	}

	return nil
}

// runUniformRandom fills a dense output with uniform samples.
//
// Attrs: shape (required), dtype (f32 or f64, default f32),
// min (default -1), max (default 1), seed (default 0 = nondeterministic).
func runUniformRandom(op *program.OpDesc, s *scope.Scope) error {
	out, err := singleOutput(op, s, "Out")
	if err != nil {
		return err
	}

	dims, ok := op.DimsAttr("shape")
	if !ok {
		return fmt.Errorf("%w: missing shape attr", ErrBadOp)
	}

	dtype, err := tensor.ParseDType(op.StrAttr("dtype", "f32"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadOp, err)
	}

	if dtype != tensor.F32 && dtype != tensor.F64 {
		return fmt.Errorf("%w: uniform_random needs a float dtype, got %s", ErrBadOp, dtype)
	}

	seed := uint64(op.IntAttr("seed", 0))
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	dist := distuv.Uniform{
		Min: op.FloatAttr("min", -1),
		Max: op.FloatAttr("max", 1),
		Src: rand.NewSource(seed),
	}

	out.Resize(dtype, dims)

	if dtype == tensor.F32 {
		data := out.F32()
		for i := range data {
			data[i] = float32(dist.Rand())
		}
	} else {
		data := out.F64()
		for i := range data {
			data[i] = dist.Rand()
		}
	}

	return nil
}

// runScale computes Out = X*scale + bias elementwise. Out may be the
// same variable as X.
//
// Attrs: scale (default 1), bias (default 0).
func runScale(op *program.OpDesc, s *scope.Scope) error {
	in, err := singleInput(op, s, "X")
	if err != nil {
		return err
	}

	out, err := singleOutput(op, s, "Out")
	if err != nil {
		return err
	}

	scaleBy := op.FloatAttr("scale", 1)
	bias := op.FloatAttr("bias", 0)

	switch in.DType() {
	case tensor.F32:
		src := in.F32()
		out.Resize(tensor.F32, in.Dims())
		dst := out.F32()

		for i, v := range src {
			dst[i] = v*float32(scaleBy) + float32(bias)
		}
	case tensor.F64:
		src := in.F64()
		out.Resize(tensor.F64, in.Dims())
		dst := out.F64()

		for i, v := range src {
			dst[i] = v*scaleBy + bias
		}
	default:
		return fmt.Errorf("%w: scale needs a float dtype, got %s", ErrBadOp, in.DType())
	}

	return nil
}

// runSum computes the elementwise sum of the X inputs. All inputs must
// share one shape and dtype; Out may alias any input.
func runSum(op *program.OpDesc, s *scope.Scope) error {
	names := op.Input("X")
	if len(names) == 0 {
		return fmt.Errorf("%w: sum needs at least one input", ErrBadOp)
	}

	inputs := make([]*tensor.Dense, len(names))
	for i, name := range names {
		in, err := resolveDense(s, name)
		if err != nil {
			return err
		}

		inputs[i] = in
	}

	first := inputs[0]
	if first.DType() != tensor.F32 && first.DType() != tensor.F64 {
		return fmt.Errorf("%w: sum needs a float dtype, got %s", ErrBadOp, first.DType())
	}

	for _, in := range inputs[1:] {
		if in.DType() != first.DType() || in.Numel() != first.Numel() {
			return fmt.Errorf("%w: sum over %s%v and %s%v",
				ErrShapeMismatch, first.DType(), first.Dims(), in.DType(), in.Dims())
		}
	}

	out, err := singleOutput(op, s, "Out")
	if err != nil {
		return err
	}

	if first.DType() == tensor.F32 {
		srcs := make([][]float32, len(inputs))
		for i, in := range inputs {
			srcs[i] = in.F32()
		}

		out.Resize(tensor.F32, first.Dims())
		sumInto(out.F32(), srcs)
	} else {
		srcs := make([][]float64, len(inputs))
		for i, in := range inputs {
			srcs[i] = in.F64()
		}

		out.Resize(tensor.F64, first.Dims())
		sumInto(out.F64(), srcs)
	}

	return nil
}

// runCoalesce packs the X inputs into one contiguous fused output and
// rebinds every input to a view of the fused buffer. Writes through the
// fused tensor and through the originals hit the same memory afterward.
//
// Attrs: dtype (default f32).
func runCoalesce(op *program.OpDesc, s *scope.Scope) error {
	names := op.Input("X")
	if len(names) == 0 {
		return fmt.Errorf("%w: coalesce needs at least one input", ErrBadOp)
	}

	dtype, err := tensor.ParseDType(op.StrAttr("dtype", "f32"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadOp, err)
	}

	inputs := make([]*tensor.Dense, len(names))

	var total int64

	for i, name := range names {
		in, resolveErr := resolveDense(s, name)
		if resolveErr != nil {
			return resolveErr
		}

		if in.DType() != dtype {
			return fmt.Errorf("%w: coalesce %s input %q is %s", ErrBadOp, dtype, name, in.DType())
		}

		inputs[i] = in
		total += in.Numel()
	}

	out, err := singleOutput(op, s, "Out")
	if err != nil {
		return err
	}

	out.Resize(dtype, []int64{total})

	var offset int64

	for _, in := range inputs {
		view, viewErr := out.View(offset, in.Dims())
		if viewErr != nil {
			return viewErr
		}

		copy(view.Bytes(), in.Bytes())
		*in = *view

		offset += view.Numel()
	}

	return nil
}

type number interface {
	~float32 | ~float64 | ~int32 | ~int64
}

func fill[T number](dst []T, v T) {
	for i := range dst {
		dst[i] = v
	}
}

// sumInto accumulates all sources into dst. Reading every source at
// index i before writing dst[i] keeps aliased outputs correct.
func sumInto[T number](dst []T, srcs [][]T) {
	for i := range dst {
		var acc T
		for _, src := range srcs {
			acc += src[i]
		}

		dst[i] = acc
	}
}

func resolveDense(s *scope.Scope, name string) (*tensor.Dense, error) {
	v := s.Resolve(name)
	if v == nil {
		return nil, fmt.Errorf("%w: %q", ErrVarNotFound, name)
	}

	dense, err := v.Dense()
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}

	if !dense.Initialized() {
		return nil, fmt.Errorf("%q: %w", name, tensor.ErrNotAllocated)
	}

	return dense, nil
}

func singleInput(op *program.OpDesc, s *scope.Scope, slot string) (*tensor.Dense, error) {
	names := op.Input(slot)
	if len(names) != 1 {
		return nil, fmt.Errorf("%w: %s wants one %s input, got %d", ErrBadOp, op.Type, slot, len(names))
	}

	return resolveDense(s, names[0])
}

// singleOutput resolves the output slot to a dense payload without
// requiring it to be allocated yet.
func singleOutput(op *program.OpDesc, s *scope.Scope, slot string) (*tensor.Dense, error) {
	names := op.Output(slot)
	if len(names) != 1 {
		return nil, fmt.Errorf("%w: %s wants one %s output, got %d", ErrBadOp, op.Type, slot, len(names))
	}

	v := s.Resolve(names[0])
	if v == nil {
		return nil, fmt.Errorf("%w: %q", ErrVarNotFound, names[0])
	}

	dense, err := v.Dense()
	if err != nil {
		return nil, fmt.Errorf("%q: %w", names[0], err)
	}

	return dense, nil
}
