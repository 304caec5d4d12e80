package persist

import (
	"reflect"
	"strings"
)

const (
	// VersionKey holds the schema version marker at the document root.
	VersionKey = "__dversion"
	// TypeKey holds the type tag of every tagged object.
	TypeKey = "__type"

	// DefaultVersion is assumed when a document or value does not declare one.
	DefaultVersion = 1

	reservedPrefix = "_"
)

// Value is a composite whose persistable state is a named set of fields.
// Fields must return the same descriptor for export and import; the
// returned bindings point at the value's live storage.
type Value interface {
	TypeTag() string
	Fields() []Field
}

// Versioned reports the schema version a value is written with.
type Versioned interface {
	SchemaVersion() int
}

// VersionMigrator rewrites an older document into the current field layout.
// Implementations must leave an already-current document untouched.
type VersionMigrator interface {
	ConvertVersion(doc Document) (Document, error)
}

// MigratorFunc adapts a function to VersionMigrator.
type MigratorFunc func(doc Document) (Document, error)

// ConvertVersion implements VersionMigrator.
func (f MigratorFunc) ConvertVersion(doc Document) (Document, error) {
	if f == nil {
		return doc, nil
	}
	return f(doc)
}

// Extensions holds document keys a value does not declare.
type Extensions map[string]any

// Extensible values opt into keeping unknown document keys. Keys are
// materialised with a nil value and then assigned following the same rules
// as a dynamic field, and are exported again on the next save.
type Extensible interface {
	Value
	Extensions() *Extensions
}

// Validator is implemented by values that can check their own invariants.
type Validator interface {
	Validate() error
}

// Document is a tagged object: a mapping carrying a type tag and, at the
// root, a schema version marker. Nested tagged objects, sequences and plain
// mappings are stored as map[string]any and []any.
type Document map[string]any

// Version returns the schema version marker, DefaultVersion when absent.
func (d Document) Version() int {
	if d == nil {
		return DefaultVersion
	}
	version, ok := toInt(d[VersionKey])
	if !ok {
		return DefaultVersion
	}
	return version
}

// SetVersion rewrites the schema version marker.
func (d Document) SetVersion(version int) {
	if d == nil {
		return
	}
	d[VersionKey] = version
}

// TypeTag returns the type tag, empty when the document is untagged.
func (d Document) TypeTag() string {
	if d == nil {
		return ""
	}
	tag, _ := d[TypeKey].(string)
	return tag
}

// Clone deep copies the document tree.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneTree(map[string]any(d)).(map[string]any))
}

func isMarker(key string) bool {
	return key == VersionKey || key == TypeKey
}

func saveable(name string) bool {
	return name != "" && !strings.HasPrefix(name, reservedPrefix)
}

func schemaVersion(v Value) int {
	if versioned, ok := v.(Versioned); ok {
		if version := versioned.SchemaVersion(); version > 0 {
			return version
		}
	}
	return DefaultVersion
}

func cloneTree(value any) any {
	switch typed := value.(type) {
	case Document:
		return map[string]any(typed.Clone())
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = cloneTree(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneTree(item)
		}
		return out
	default:
		return value
	}
}

func asMapping(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case Document:
		return map[string]any(typed), true
	case map[string]any:
		return typed, true
	default:
		return nil, false
	}
}

func asSequence(value any) ([]any, bool) {
	if typed, ok := value.([]any); ok {
		return typed, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
