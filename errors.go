package persist

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedValue = errors.New("persist: unsupported value")
	ErrMaxDepth         = errors.New("persist: maximum nesting depth exceeded")
	ErrNotStructured    = errors.New("persist: value is not structured")
	ErrShapeMismatch    = errors.New("persist: shape mismatch")
)

// ShapeMismatch reports a document field whose shape disagrees with the
// target field. It is recorded and the field is skipped; import continues.
type ShapeMismatch struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Want   string `json:"want"`
	Got    string `json:"got"`
	Reason string `json:"reason,omitempty"`
}

func (m ShapeMismatch) Error() string {
	msg := fmt.Sprintf("persist: unable to load %q on %s: want %s, document has %s", m.Path, m.Type, m.Want, m.Got)
	if m.Reason != "" {
		msg += ": " + m.Reason
	}
	return msg
}

// Is matches ErrShapeMismatch.
func (m ShapeMismatch) Is(target error) bool {
	return target == ErrShapeMismatch
}

// MigrationError wraps a failing version migrator. Nothing is assigned to
// the target when migration fails.
type MigrationError struct {
	Type string
	From int
	Err  error
}

func (e *MigrationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("persist: migrate %s from version %d: %v", e.Type, e.From, e.Err)
}

func (e *MigrationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
