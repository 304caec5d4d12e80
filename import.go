package persist

import (
	"fmt"
	"sort"
	"time"
)

// Import migrates doc to the target's current version and assigns its fields
// onto target in place. Unknown keys and shape mismatches are recorded in the
// returned Report and never abort the import. The caller's document is not
// modified.
func (c *Codec) Import(doc Document, target Value) (Report, error) {
	if isNil(target) {
		return Report{}, ErrNotStructured
	}
	if c == nil {
		c = defaultCodec
	}
	start := time.Now()
	tag := target.TypeTag()
	report := Report{Type: tag}

	working := doc.Clone()
	if working == nil {
		working = Document{}
	}
	if c.cfg.strictTags {
		if docTag := working.TypeTag(); docTag != "" && tag != "" && docTag != tag {
			err := ShapeMismatch{Type: tag, Want: "tagged:" + tag, Got: "tagged:" + docTag}
			c.Logger().Log(LogEvent{Op: "import", Type: tag, Err: err})
			return report, err
		}
	}

	imp := importer{codec: c, report: &report}
	migrated, from, to, err := imp.migrate(working, target)
	report.FromVersion, report.ToVersion = from, to
	if err != nil {
		return report, err
	}
	working = migrated
	if report.Migrated() {
		c.Logger().Log(LogEvent{
			Op:      "migrate",
			Type:    tag,
			Message: fmt.Sprintf("migrated from version %d to %d", report.FromVersion, report.ToVersion),
		})
	}

	imp.importValue(working, target, 0, "")
	c.Logger().Log(LogEvent{Op: "import", Type: tag, Duration: time.Since(start)})
	return report, nil
}

// ImportAs builds a fresh value with newValue and imports doc into it. A nil
// codec uses the default codec.
func ImportAs[V Value](c *Codec, doc Document, newValue func() V) (V, Report, error) {
	if c == nil {
		c = defaultCodec
	}
	value := newValue()
	report, err := c.Import(doc, value)
	return value, report, err
}

type importer struct {
	codec  *Codec
	report *Report
}

// migrate runs the migrator registered for target's type over doc. A
// document without a marker is taken to be at DefaultVersion.
func (imp *importer) migrate(doc Document, target Value) (Document, int, int, error) {
	from := doc.Version()
	migrator := imp.codec.migratorFor(target)
	if migrator == nil {
		return doc, from, from, nil
	}
	migrated, err := migrator.ConvertVersion(doc)
	if err != nil {
		err = &MigrationError{Type: target.TypeTag(), From: from, Err: err}
		imp.codec.Logger().Log(LogEvent{Op: "migrate", Type: target.TypeTag(), Err: err})
		return nil, from, from, err
	}
	if migrated == nil {
		migrated = doc
	}
	return migrated, from, migrated.Version(), nil
}

// importNested migrates a nested tagged object and imports it into target.
// A failing migration is recorded as a mismatch and nothing is assigned.
func (imp *importer) importNested(doc map[string]any, target Value, owner, path string, depth int) bool {
	migrated, from, to, err := imp.migrate(Document(doc), target)
	if err != nil {
		imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: "tagged:" + target.TypeTag(), Got: kindName(doc), Reason: err.Error()})
		return false
	}
	if from != to {
		imp.report.Upgraded = append(imp.report.Upgraded, path)
	}
	imp.importValue(migrated, target, depth+1, path)
	return true
}

func (imp *importer) importValue(doc map[string]any, target Value, depth int, path string) {
	owner := target.TypeTag()
	if depth > imp.codec.cfg.maxDepth {
		imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: "tagged:" + owner, Got: kindName(doc), Reason: ErrMaxDepth.Error()})
		return
	}

	fields := map[string]Field{}
	for _, field := range target.Fields() {
		if !saveable(field.Name) {
			continue
		}
		if _, seen := fields[field.Name]; !seen {
			fields[field.Name] = field
		}
	}
	var ext *Extensions
	if extensible, ok := target.(Extensible); ok {
		ext = extensible.Extensions()
	}

	keys := make([]string, 0, len(doc))
	for key := range doc {
		if !isMarker(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		fieldPath := joinPath(path, key)
		field, ok := fields[key]
		if !ok {
			if ext == nil || !saveable(key) {
				imp.report.Skipped = append(imp.report.Skipped, fieldPath)
				continue
			}
			if *ext == nil {
				*ext = Extensions{}
			}
			(*ext)[key] = nil
			imp.report.Extended = append(imp.report.Extended, fieldPath)
			field = extensionField(ext, key)
		}
		imp.assign(field, doc[key], owner, fieldPath, depth)
	}
}

func (imp *importer) assign(field Field, incoming any, owner, path string, depth int) {
	kind := field.Kind()

	if items, ok := asSequence(incoming); ok {
		if kind != KindList {
			imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: kind.String(), Got: "sequence"})
			return
		}
		rebuilt := make([]any, 0, len(items))
		for i, item := range items {
			if value, ok := imp.rebuild(field, item, owner, fmt.Sprintf("%s[%d]", path, i), depth); ok {
				rebuilt = append(rebuilt, value)
			}
		}
		imp.set(field, rebuilt, owner, path)
		return
	}

	if entries, ok := asMapping(incoming); ok {
		if kind == KindNested {
			nested, _ := field.Get().(Value)
			if isNil(nested) {
				imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: kind.String(), Got: kindName(entries), Reason: "field holds no value"})
				return
			}
			if !imp.tagMatches(entries, nested) {
				imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: "tagged:" + nested.TypeTag(), Got: kindName(entries)})
				return
			}
			imp.importNested(entries, nested, owner, path, depth)
			return
		}
		rebuilt := make(map[string]any, len(entries))
		for key, item := range entries {
			if value, ok := imp.rebuild(field, item, owner, joinPath(path, key), depth); ok {
				rebuilt[key] = value
			}
		}
		imp.set(field, rebuilt, owner, path)
		return
	}

	if kind == KindNested {
		imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: kind.String(), Got: kindName(incoming)})
		return
	}
	imp.set(field, incoming, owner, path)
}

// rebuild turns one list element or mapping value into its target shape:
// a fresh Value when the field declares an element type, the raw document
// value otherwise.
func (imp *importer) rebuild(field Field, item any, owner, path string, depth int) (any, bool) {
	if !field.HasElementType() {
		return item, true
	}
	fresh := field.elem()
	entries, ok := asMapping(item)
	if !ok {
		imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: "tagged:" + fresh.TypeTag(), Got: kindName(item)})
		return nil, false
	}
	if !imp.tagMatches(entries, fresh) {
		imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: "tagged:" + fresh.TypeTag(), Got: kindName(entries)})
		return nil, false
	}
	if !imp.importNested(entries, fresh, owner, path, depth) {
		return nil, false
	}
	return fresh, true
}

func (imp *importer) set(field Field, value any, owner, path string) {
	if err := field.Set(value); err != nil {
		imp.mismatch(ShapeMismatch{Type: owner, Path: path, Want: field.Kind().String(), Got: kindName(value), Reason: err.Error()})
	}
}

func (imp *importer) tagMatches(doc map[string]any, target Value) bool {
	if !imp.codec.cfg.strictTags {
		return true
	}
	tag, _ := doc[TypeKey].(string)
	return tag == "" || tag == target.TypeTag()
}

func (imp *importer) mismatch(m ShapeMismatch) {
	imp.report.Mismatches = append(imp.report.Mismatches, m)
	imp.codec.Logger().Log(LogEvent{Op: "import", Type: m.Type, Path: m.Path, Err: m})
}
