package migration

// Result accumulates the outcome of a run. It replaces a global error
// counter: every import call receives the accumulator and appends to it,
// and nothing ever aborts the run. The final exit status is derived from
// ErrorCount alone; warnings mark skips and degraded imports.
type Result struct {
	failed   []string
	warnings int
}

func NewResult() *Result {
	return &Result{}
}

// AddError appends a failed-entity description in encounter order
func (r *Result) AddError(tag string) {
	r.failed = append(r.failed, tag)
}

// AddWarning counts a skip or degraded outcome
func (r *Result) AddWarning() {
	r.warnings++
}

// ErrorCount returns the number of failed entities
func (r *Result) ErrorCount() int {
	return len(r.failed)
}

// WarningCount returns the number of warnings
func (r *Result) WarningCount() int {
	return r.warnings
}

// Failed returns the failed-entity descriptions in encounter order
func (r *Result) Failed() []string {
	return r.failed
}

// OK reports whether the run finished without failures
func (r *Result) OK() bool {
	return len(r.failed) == 0
}

// Merge folds another accumulator into this one, preserving order
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.failed = append(r.failed, other.failed...)
	r.warnings += other.warnings
}
