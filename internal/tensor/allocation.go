package tensor

// Allocation is a contiguous byte buffer backing one or more dense
// tensors. Views created from the same tensor share its allocation, so
// memory accounting must deduplicate by allocation identity.
type Allocation struct {
	data []byte
}

func newAllocation(size int) *Allocation {
	return &Allocation{data: make([]byte, size)}
}

// Size returns the buffer length in bytes.
func (a *Allocation) Size() uint64 {
	return uint64(len(a.data))
}
