package persist

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// Export walks v and produces a tagged-object document carrying the current
// schema version marker. It has no side effects on v.
func (c *Codec) Export(v Value) (Document, error) {
	if isNil(v) {
		return nil, ErrNotStructured
	}
	start := time.Now()
	doc, err := c.exportValue(v, 0, "")
	if err != nil {
		c.Logger().Log(LogEvent{Op: "export", Type: v.TypeTag(), Duration: time.Since(start), Err: err})
		return nil, err
	}
	doc.SetVersion(schemaVersion(v))
	c.Logger().Log(LogEvent{Op: "export", Type: v.TypeTag(), Duration: time.Since(start)})
	return doc, nil
}

func (c *Codec) exportValue(v Value, depth int, path string) (Document, error) {
	if depth > c.cfg.maxDepth {
		return nil, fmt.Errorf("%w at %q", ErrMaxDepth, path)
	}
	fields := v.Fields()
	doc := make(Document, len(fields)+2)
	if tag := v.TypeTag(); tag != "" {
		doc[TypeKey] = tag
	}
	if depth > 0 {
		if version := schemaVersion(v); version != DefaultVersion {
			doc.SetVersion(version)
		}
	}
	for _, field := range fields {
		if !saveable(field.Name) || isMarker(field.Name) {
			continue
		}
		if _, seen := doc[field.Name]; seen {
			continue
		}
		value, err := c.exportAny(field.Get(), depth+1, joinPath(path, field.Name))
		if err != nil {
			return nil, err
		}
		doc[field.Name] = value
	}

	ext, ok := v.(Extensible)
	if !ok {
		return doc, nil
	}
	bag := ext.Extensions()
	if bag == nil || len(*bag) == 0 {
		return doc, nil
	}
	keys := make([]string, 0, len(*bag))
	for key := range *bag {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if isMarker(key) {
			continue
		}
		if _, declared := doc[key]; declared {
			continue
		}
		value, err := c.exportAny((*bag)[key], depth+1, joinPath(path, key))
		if err != nil {
			return nil, err
		}
		doc[key] = value
	}
	return doc, nil
}

func (c *Codec) exportAny(value any, depth int, path string) (any, error) {
	if depth > c.cfg.maxDepth {
		return nil, fmt.Errorf("%w at %q", ErrMaxDepth, path)
	}
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case Value:
		if isNil(typed) {
			return nil, nil
		}
		nested, err := c.exportValue(typed, depth, path)
		if err != nil {
			return nil, err
		}
		return map[string]any(nested), nil
	case string, bool, int, int64, float64, json.Number:
		return typed, nil
	case time.Time:
		return typed.Format(time.RFC3339Nano), nil
	case []byte:
		return typed, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return plainScalar(rv), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return c.exportAny(rv.Elem().Interface(), depth, path)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			item, err := c.exportAny(rv.Index(i).Interface(), depth+1, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := mapKey(iter.Key())
			if err != nil {
				return nil, fmt.Errorf("%w: map key at %q: %v", ErrUnsupportedValue, path, err)
			}
			if _, exists := out[key]; exists {
				return nil, fmt.Errorf("%w: map keys collide as %q at %q", ErrUnsupportedValue, key, path)
			}
			item, err := c.exportAny(iter.Value().Interface(), depth+1, joinPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = item
		}
		return out, nil
	case reflect.Struct:
		switch value.(type) {
		case json.Marshaler, encoding.TextMarshaler:
			return value, nil
		}
	}
	return nil, fmt.Errorf("%w: %T at %q", ErrUnsupportedValue, value, path)
}

// plainScalar strips named types so documents only hold builtin scalars.
func plainScalar(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int:
		return int(rv.Int())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	default:
		return rv.Float()
	}
}

// mapKey renders a Go map key as a document mapping key. TextMarshaler keys
// use their text form; other keys are formatted with fmt.Sprint.
func mapKey(key reflect.Value) (string, error) {
	if key.Kind() == reflect.Interface {
		if key.IsNil() {
			return fmt.Sprint(nil), nil
		}
		key = key.Elem()
	}
	if marshaler, ok := key.Interface().(encoding.TextMarshaler); ok {
		text, err := marshaler.MarshalText()
		if err != nil {
			return "", err
		}
		return string(text), nil
	}
	return fmt.Sprint(key.Interface()), nil
}
