// Package validation runs the structural and per-field checks over a raw
// register extract and builds the deterministic issue report.
package validation

import "fmt"

// StructuralError marks input the pipeline cannot work with at all, such as
// an unparseable CSV. It is the only validation failure that aborts the
// pipeline; content findings travel in the report instead.
type StructuralError struct {
	Path    string
	Message string
	Cause   error
}

func (e *StructuralError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("structural error in %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("structural error in %s: %s", e.Path, e.Message)
}

func (e *StructuralError) Unwrap() error {
	return e.Cause
}
