package csvimport

import "fmt"

// StructuralError aborts the whole import before any row is processed.
// Row-level problems never use it; they become Result errors instead.
type StructuralError struct {
	Message string
}

func (e *StructuralError) Error() string {
	return e.Message
}

func NewStructuralError(format string, args ...any) *StructuralError {
	return &StructuralError{Message: fmt.Sprintf(format, args...)}
}

// ErrNoData is returned for uploads without at least a header row and one
// data row.
var ErrNoData = &StructuralError{Message: "must have at least a header row and one data row"}
