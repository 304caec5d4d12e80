// Package openapi describes the documents written for persisted values as
// an OpenAPI document. Each type tag becomes a component schema.
package openapi

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	persist "github.com/goliatone/go-persist"
)

type generator struct {
	config   generatorConfig
	registry *componentRegistry
}

// Generate walks the field bindings of value, and of every nested, list and
// mapping element type it declares, and returns an OpenAPI document whose
// operation accepts value's document as request body.
func Generate(value persist.Value, opts ...GeneratorOption) (map[string]any, error) {
	if value == nil || reflect.ValueOf(value).Kind() == reflect.Pointer && reflect.ValueOf(value).IsNil() {
		return nil, fmt.Errorf("openapi: value cannot be nil")
	}
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	g := &generator{config: cfg, registry: newComponentRegistry()}
	root, err := g.component(value, true)
	if err != nil {
		return nil, err
	}
	return g.document(root)
}

// component registers the schema of value's type tag and returns its
// component name.
func (g *generator) component(value persist.Value, root bool) (string, error) {
	tag := value.TypeTag()
	if tag == "" {
		return "", fmt.Errorf("openapi: %T has no type tag", value)
	}
	name, known := g.registry.reserve(tag)
	if known {
		return name, nil
	}

	properties := map[string]any{
		persist.TypeKey: map[string]any{"type": "string", "enum": []any{tag}},
	}
	required := []string{persist.TypeKey}
	schema := map[string]any{"type": "object"}
	version := persist.DefaultVersion
	if versioned, ok := value.(persist.Versioned); ok && versioned.SchemaVersion() > 0 {
		version = versioned.SchemaVersion()
	}
	// Nested objects only carry a version marker once their type has moved
	// past the default version, and readers treat a missing one as 1.
	if root || version != persist.DefaultVersion {
		properties[persist.VersionKey] = map[string]any{"type": "integer", "minimum": 1}
		schema["x-persist-version"] = version
	}
	if root {
		required = append(required, persist.VersionKey)
	}

	for _, field := range value.Fields() {
		if field.Name == "" || strings.HasPrefix(field.Name, "_") {
			continue
		}
		child, err := g.fieldSchema(field)
		if err != nil {
			return "", fmt.Errorf("openapi: %s.%s: %w", tag, field.Name, err)
		}
		properties[field.Name] = child
	}
	if _, ok := value.(persist.Extensible); ok {
		schema["x-persist-extensible"] = true
	}
	schema["properties"] = properties
	schema["required"] = required
	g.registry.define(name, schema)
	return name, nil
}

func (g *generator) fieldSchema(field persist.Field) (map[string]any, error) {
	switch field.Kind() {
	case persist.KindNested:
		nested, ok := field.Get().(persist.Value)
		if !ok || nested == nil {
			return map[string]any{"type": "object"}, nil
		}
		name, err := g.component(nested, false)
		if err != nil {
			return nil, err
		}
		return ref(name), nil
	case persist.KindList:
		if elem := field.NewElement(); elem != nil {
			name, err := g.component(elem, false)
			if err != nil {
				return nil, err
			}
			return map[string]any{"type": "array", "items": ref(name)}, nil
		}
	case persist.KindMap:
		if elem := field.NewElement(); elem != nil {
			name, err := g.component(elem, false)
			if err != nil {
				return nil, err
			}
			return map[string]any{"type": "object", "additionalProperties": ref(name)}, nil
		}
	}
	current := field.Get()
	if current == nil {
		return map[string]any{}, nil
	}
	if nested, ok := current.(persist.Value); ok {
		name, err := g.component(nested, false)
		if err != nil {
			return nil, err
		}
		return ref(name), nil
	}
	return schemaForType(reflect.TypeOf(current)), nil
}

var timeType = reflect.TypeOf(time.Time{})

// schemaForType maps a Go type to the schema of its exported document form.
func schemaForType(rt reflect.Type) map[string]any {
	switch rt.Kind() {
	case reflect.Pointer:
		schema := schemaForType(rt.Elem())
		schema["nullable"] = true
		return schema
	case reflect.Interface:
		return map[string]any{}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Struct:
		if rt == timeType {
			return map[string]any{"type": "string", "format": "date-time"}
		}
		return map[string]any{"type": "object"}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": schemaForType(rt.Elem()),
		}
	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "format": "byte"}
		}
		return map[string]any{"type": "array", "items": schemaForType(rt.Elem())}
	default:
		return map[string]any{"type": "string", "format": fmt.Sprintf("go:%s", rt.String())}
	}
}
