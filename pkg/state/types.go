package state

import (
	"context"
	"errors"
	"fmt"

	persist "github.com/goliatone/go-persist"
)

var (
	// ErrCorruptDocument matches every CorruptDocumentError.
	ErrCorruptDocument = errors.New("state: corrupt document")
	// ErrLocationRequired is returned for an empty location.
	ErrLocationRequired = errors.New("state: location is required")
)

// Store loads and saves one document per location.
type Store interface {
	// Load returns ok=false without error when nothing is stored at location.
	Load(ctx context.Context, location string) (doc persist.Document, ok bool, err error)
	Save(ctx context.Context, location string, doc persist.Document) error
	// Delete removes the stored document. A missing document is not an error.
	Delete(ctx context.Context, location string) error
	Exists(ctx context.Context, location string) (bool, error)
}

// CorruptDocumentError reports a stored document that could not be parsed,
// after the backup (if any) was restored and retried.
type CorruptDocumentError struct {
	Location string

	// Restored reports whether a backup was restored before the final attempt.
	Restored bool
	Err      error
}

func (e *CorruptDocumentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Restored {
		return fmt.Sprintf("state: corrupt document at %q (backup restored): %v", e.Location, e.Err)
	}
	return fmt.Sprintf("state: corrupt document at %q: %v", e.Location, e.Err)
}

func (e *CorruptDocumentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrCorruptDocument.
func (e *CorruptDocumentError) Is(target error) bool {
	return target == ErrCorruptDocument
}
