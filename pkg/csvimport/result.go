package csvimport

import "fmt"

// Result is the import outcome returned to callers. Success plus Failed
// always equals the number of data rows submitted.
type Result struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

func NewResult() *Result {
	return &Result{Errors: []string{}}
}

// AddRowError fails a single row with exactly one message.
func (r *Result) AddRowError(line int, reason string) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %s", line, reason))
}

// MarkCommitted counts n accumulated rows as successfully persisted.
func (r *Result) MarkCommitted(n int) {
	r.Success += n
}

// MarkBatchFailed fails all n accumulated rows with one aggregate error,
// keeping any per-row errors collected earlier.
func (r *Result) MarkBatchFailed(n int, reason string) {
	r.Failed += n
	r.Errors = append(r.Errors, reason)
}
