package executor

import "sort"

// PreservedNamesForTest returns one worker's preserved variable names
// in sorted order.
func (e *Executor) PreservedNamesForTest(idx int) []string {
	names := make([]string, 0, len(e.preserved[idx]))
	for name := range e.preserved[idx] {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
