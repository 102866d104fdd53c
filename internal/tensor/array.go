package tensor

// Array is an ordered list of dense tensors, typically produced by
// operations that emit one tensor per step.
type Array []*Dense
