package persist

import (
	"encoding/json"
)

// Report describes what an import did besides assigning fields.
type Report struct {
	Type        string          `json:"type"`
	FromVersion int             `json:"from_version"`
	ToVersion   int             `json:"to_version"`
	Skipped     []string        `json:"skipped,omitempty"`
	Extended    []string        `json:"extended,omitempty"`
	Mismatches  []ShapeMismatch `json:"mismatches,omitempty"`

	// Upgraded lists the paths of nested tagged objects whose version
	// marker changed during their own migration.
	Upgraded []string `json:"upgraded,omitempty"`
}

// Migrated reports whether the version marker changed during migration.
func (r Report) Migrated() bool {
	return r.FromVersion != r.ToVersion
}

// NeedsSave reports whether the document written by an export would differ
// from the imported one because of a migration anywhere in the tree.
func (r Report) NeedsSave() bool {
	return r.Migrated() || len(r.Upgraded) > 0
}

// Clean reports whether every document key was assigned.
func (r Report) Clean() bool {
	return len(r.Skipped) == 0 && len(r.Mismatches) == 0
}

// ToJSON serialises the report for logging or transport helpers.
func (r Report) ToJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(alias(r))
}

// ReportFromJSON deserialises a payload previously produced by ToJSON.
func ReportFromJSON(payload []byte) (Report, error) {
	type alias Report
	var report alias
	if err := json.Unmarshal(payload, &report); err != nil {
		return Report{}, err
	}
	return Report(report), nil
}
