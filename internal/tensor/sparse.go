package tensor

// SparseRows stores a subset of rows from a logical matrix of the given
// height. Row i of the value tensor carries the data for logical row
// rows[i].
type SparseRows struct {
	rows   []int64
	height int64
	value  *Dense
}

// NewSparseRows creates an empty row set with the given logical height.
func NewSparseRows(height int64) *SparseRows {
	return &SparseRows{height: height, value: &Dense{}}
}

// Rows returns the logical row indices.
func (s *SparseRows) Rows() []int64 {
	return s.rows
}

// SetRows replaces the logical row indices.
func (s *SparseRows) SetRows(rows []int64) {
	s.rows = rows
}

// Height returns the logical row count of the full matrix.
func (s *SparseRows) Height() int64 {
	return s.height
}

// SetHeight sets the logical row count of the full matrix.
func (s *SparseRows) SetHeight(height int64) {
	s.height = height
}

// Value returns the dense tensor holding the stored rows.
func (s *SparseRows) Value() *Dense {
	return s.value
}
