package sortstate

import "errors"

// SentinelNone is the sort parameter value meaning "explicitly unsorted".
// It is reserved and can never be a column id.
const SentinelNone = "none"

// Direction parameter values.
const (
	DirAsc  = "asc"
	DirDesc = "desc"
)

// ErrReservedColumn is returned when an allow-list contains SentinelNone.
var ErrReservedColumn = errors.New("column id \"none\" is reserved")

// Sort is a single sort instruction.
type Sort struct {
	ColumnID   string
	Descending bool
}

// Direction returns DirAsc or DirDesc.
func (s Sort) Direction() string {
	if s.Descending {
		return DirDesc
	}
	return DirAsc
}

// Equal compares sort states by value.
func Equal(a, b []Sort) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Normalize reduces state to its first entry whose column is in columns.
// The result is nil when no entry qualifies. Multi-column sorting is not
// supported, so later entries are always dropped.
func Normalize(state []Sort, columns []string) []Sort {
	for _, s := range state {
		for _, column := range columns {
			if s.ColumnID == column && column != SentinelNone {
				return []Sort{s}
			}
		}
	}
	return nil
}
