package tensor

import (
	"errors"
	"fmt"
	"slices"
	"unsafe"
)

var (
	// ErrNotAllocated reports access to a dense tensor before any data
	// was attached to it.
	ErrNotAllocated = errors.New("dense tensor not allocated")

	// ErrViewOutOfRange reports a view extent exceeding its base tensor.
	ErrViewOutOfRange = errors.New("view out of range")
)

// Dense is an n-dimensional tensor over a contiguous allocation.
// The zero value is an unallocated placeholder; Resize attaches storage.
type Dense struct {
	dtype DType
	dims  []int64
	alloc *Allocation
	off   int
}

// NewDense allocates a dense tensor with the given element type and shape.
func NewDense(dtype DType, dims []int64) *Dense {
	dense := &Dense{}
	dense.Resize(dtype, dims)

	return dense
}

// Resize sets the element type and shape, attaching a fresh allocation
// when the current one is absent, shared or too small.
func (d *Dense) Resize(dtype DType, dims []int64) {
	need := int(numelOf(dims)) * dtype.Size()
	if d.alloc == nil || d.off != 0 || len(d.alloc.data) < need {
		d.alloc = newAllocation(need)
		d.off = 0
	}

	d.dtype = dtype
	d.dims = slices.Clone(dims)
}

// DType returns the element type.
func (d *Dense) DType() DType {
	return d.dtype
}

// Dims returns a copy of the shape.
func (d *Dense) Dims() []int64 {
	return slices.Clone(d.dims)
}

// Numel returns the number of elements, or 0 when unallocated.
func (d *Dense) Numel() int64 {
	if d.alloc == nil {
		return 0
	}

	return numelOf(d.dims)
}

// SizeBytes returns the byte extent of this tensor's elements.
func (d *Dense) SizeBytes() uint64 {
	return uint64(d.Numel()) * uint64(d.dtype.Size())
}

// Allocation returns the backing buffer, or nil when unallocated.
// Two tensors alias iff they return the same allocation.
func (d *Dense) Allocation() *Allocation {
	return d.alloc
}

// Initialized reports whether storage is attached.
func (d *Dense) Initialized() bool {
	return d.alloc != nil
}

// View returns a tensor of the given shape aliasing this tensor's
// allocation, starting offset elements in.
func (d *Dense) View(offset int64, dims []int64) (*Dense, error) {
	if d.alloc == nil {
		return nil, ErrNotAllocated
	}

	if offset < 0 || offset+numelOf(dims) > d.Numel() {
		return nil, fmt.Errorf("%w: offset %d shape %v in %v", ErrViewOutOfRange, offset, dims, d.dims)
	}

	return &Dense{
		dtype: d.dtype,
		dims:  slices.Clone(dims),
		alloc: d.alloc,
		off:   d.off + int(offset)*d.dtype.Size(),
	}, nil
}

// Clone returns a deep copy with its own allocation.
func (d *Dense) Clone() *Dense {
	if d.alloc == nil {
		return &Dense{dtype: d.dtype, dims: slices.Clone(d.dims)}
	}

	clone := NewDense(d.dtype, d.dims)
	copy(clone.Bytes(), d.Bytes())

	return clone
}

// Bytes returns the raw bytes of this tensor's extent within its
// allocation. Mutations write through to every aliasing view.
func (d *Dense) Bytes() []byte {
	if d.alloc == nil {
		return nil
	}

	return d.alloc.data[d.off : d.off+int(d.SizeBytes())]
}

// F32 returns the elements as []float32. Panics when the tensor is
// unallocated or holds a different element type.
func (d *Dense) F32() []float32 {
	d.checkAccess(F32)
	if d.Numel() == 0 {
		return nil
	}

	return unsafe.Slice((*float32)(unsafe.Pointer(&d.alloc.data[d.off])), d.Numel())
}

// F64 returns the elements as []float64. Panics when the tensor is
// unallocated or holds a different element type.
func (d *Dense) F64() []float64 {
	d.checkAccess(F64)
	if d.Numel() == 0 {
		return nil
	}

	return unsafe.Slice((*float64)(unsafe.Pointer(&d.alloc.data[d.off])), d.Numel())
}

// I32 returns the elements as []int32. Panics when the tensor is
// unallocated or holds a different element type.
func (d *Dense) I32() []int32 {
	d.checkAccess(I32)
	if d.Numel() == 0 {
		return nil
	}

	return unsafe.Slice((*int32)(unsafe.Pointer(&d.alloc.data[d.off])), d.Numel())
}

// I64 returns the elements as []int64. Panics when the tensor is
// unallocated or holds a different element type.
func (d *Dense) I64() []int64 {
	d.checkAccess(I64)
	if d.Numel() == 0 {
		return nil
	}

	return unsafe.Slice((*int64)(unsafe.Pointer(&d.alloc.data[d.off])), d.Numel())
}

func (d *Dense) checkAccess(want DType) {
	if d.alloc == nil {
		panic("tensor: " + ErrNotAllocated.Error())
	}

	if d.dtype != want {
		panic(fmt.Sprintf("tensor: %s access on %s tensor", want, d.dtype))
	}
}

func numelOf(dims []int64) int64 {
	n := int64(1)
	for _, dim := range dims {
		n *= dim
	}

	return n
}
