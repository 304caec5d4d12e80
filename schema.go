package persist

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FieldDescriptor describes a document path and the kind found there.
type FieldDescriptor struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Describe flattens doc into descriptors sorted by path. Markers are
// omitted; tagged objects are reported as "tagged:<type>" and then walked.
func Describe(doc Document) []FieldDescriptor {
	descriptors := deriveFieldDescriptors(map[string]any(doc), "")
	if descriptors == nil {
		return []FieldDescriptor{}
	}
	return descriptors
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	switch typed := value.(type) {
	case Document:
		return deriveFieldDescriptors(map[string]any(typed), prefix)
	case map[string]any:
		var fields []FieldDescriptor
		if prefix != "" {
			fields = append(fields, FieldDescriptor{Path: prefix, Kind: kindName(typed)})
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			if isMarker(key) {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		fields := []FieldDescriptor{{Path: prefix, Kind: kindName(typed)}}
		for i, item := range typed {
			if _, ok := asMapping(item); ok {
				fields = append(fields, deriveFieldDescriptors(item, fmt.Sprintf("%s[%d]", prefix, i))...)
			}
		}
		return fields
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Kind: kindName(typed)}}
	}
}

// kindName names the document kind of value for diagnostics.
func kindName(value any) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case Document:
		return kindName(map[string]any(typed))
	case map[string]any:
		if tag, ok := typed[TypeKey].(string); ok && tag != "" {
			return "tagged:" + tag
		}
		return "mapping"
	case []any:
		return "sequence"
	case Value:
		return "value:" + typed.TypeTag()
	}
	if _, ok := toFloat64(value); ok {
		return "number"
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return "sequence"
	case reflect.Map:
		return "mapping"
	}
	return typeName(value)
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
