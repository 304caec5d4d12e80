package persist

import (
	"fmt"

	"github.com/goliatone/go-persist/layering"
)

// Step rewrites a document written at version From into version To.
type Step struct {
	From  int
	To    int
	Apply func(doc Document) (Document, error)
}

// Migrations is an ordered chain of steps. It implements VersionMigrator.
type Migrations struct {
	steps []Step
}

// NewMigrations builds a chain. Steps are tried in the given order; each
// applies when its From equals the document's current marker.
func NewMigrations(steps ...Step) *Migrations {
	return &Migrations{steps: append([]Step(nil), steps...)}
}

// Add appends steps to the chain.
func (m *Migrations) Add(steps ...Step) *Migrations {
	m.steps = append(m.steps, steps...)
	return m
}

// Latest returns the highest version the chain produces, DefaultVersion for
// an empty chain.
func (m *Migrations) Latest() int {
	latest := DefaultVersion
	if m == nil {
		return latest
	}
	for _, step := range m.steps {
		if step.To > latest {
			latest = step.To
		}
	}
	return latest
}

// ConvertVersion applies every matching step in order and rewrites the
// marker after each one. A document already past every step is returned
// untouched.
func (m *Migrations) ConvertVersion(doc Document) (Document, error) {
	if m == nil {
		return doc, nil
	}
	for _, step := range m.steps {
		if step.To <= step.From {
			return nil, fmt.Errorf("persist: migration step %d->%d does not advance the version", step.From, step.To)
		}
		if doc.Version() != step.From {
			continue
		}
		if step.Apply != nil {
			next, err := step.Apply(doc)
			if err != nil {
				return nil, fmt.Errorf("persist: migration step %d->%d: %w", step.From, step.To, err)
			}
			if next != nil {
				doc = next
			}
		}
		doc.SetVersion(step.To)
	}
	return doc, nil
}

// RenameStep moves keys according to renames (old name -> new name). An
// existing value under the new name is kept.
func RenameStep(from, to int, renames map[string]string) Step {
	return Step{
		From: from,
		To:   to,
		Apply: func(doc Document) (Document, error) {
			for oldName, newName := range renames {
				value, ok := doc[oldName]
				if !ok {
					continue
				}
				delete(doc, oldName)
				if _, exists := doc[newName]; !exists {
					doc[newName] = value
				}
			}
			return doc, nil
		},
	}
}

// DefaultsStep fills keys missing from the document with values from
// defaults. Nested mappings are merged recursively.
func DefaultsStep(from, to int, defaults map[string]any) Step {
	return Step{
		From: from,
		To:   to,
		Apply: func(doc Document) (Document, error) {
			merged := layering.MergeDocuments(map[string]any(doc), defaults)
			return Document(merged), nil
		},
	}
}
