package extract

import "fmt"

// Warnings is an ordered diagnostic log. Each stage returns its own log and
// the engine merges them in call order.
type Warnings []string

// Addf appends a formatted warning.
func (w *Warnings) Addf(format string, args ...any) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

// Merge appends another stage's warnings.
func (w *Warnings) Merge(other Warnings) {
	*w = append(*w, other...)
}

// Strings returns the log as a non-nil slice, ready for JSON output.
func (w Warnings) Strings() []string {
	if w == nil {
		return []string{}
	}
	return []string(w)
}
