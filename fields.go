package persist

import (
	"fmt"
	"reflect"
)

// FieldKind classifies the current shape of a field.
type FieldKind int

const (
	// KindScalar covers strings, numbers, booleans and null.
	KindScalar FieldKind = iota
	// KindList covers sequences.
	KindList
	// KindMap covers plain mappings with string keys.
	KindMap
	// KindNested covers fields holding a Value that is imported in place.
	KindNested
)

func (k FieldKind) String() string {
	switch k {
	case KindList:
		return "sequence"
	case KindMap:
		return "mapping"
	case KindNested:
		return "tagged object"
	default:
		return "scalar"
	}
}

// Field binds a saveable name to live storage on a Value.
type Field struct {
	Name string

	kind func() FieldKind
	get  func() any
	set  func(any) error
	elem func() Value
}

// Kind reports the field's current shape.
func (f Field) Kind() FieldKind {
	if f.kind == nil {
		return KindScalar
	}
	return f.kind()
}

// Get returns the field's current value.
func (f Field) Get() any {
	if f.get == nil {
		return nil
	}
	return f.get()
}

// Set assigns a document-shaped value, converting it to the field's Go type.
func (f Field) Set(value any) error {
	if f.set == nil {
		return fmt.Errorf("persist: field %q is read-only", f.Name)
	}
	return f.set(value)
}

// HasElementType reports whether list or mapping elements are rebuilt as
// Values.
func (f Field) HasElementType() bool {
	return f.elem != nil
}

// NewElement builds an empty element for ListOf and MapOf fields. It
// returns nil for every other field.
func (f Field) NewElement() Value {
	if f.elem == nil {
		return nil
	}
	return f.elem()
}

// Attr binds a scalar or raw container field. When T is an interface type
// the field is dynamic and its kind follows the value it currently holds.
func Attr[T any](name string, ptr *T) Field {
	typ := reflect.TypeFor[T]()
	return Field{
		Name: name,
		kind: func() FieldKind {
			if typ.Kind() == reflect.Interface || typ.Implements(valueType) {
				return kindOf(any(*ptr))
			}
			return kindOfType(typ)
		},
		get: func() any { return *ptr },
		set: func(value any) error {
			converted, err := convertTo(typ, value)
			if err != nil {
				return err
			}
			typed, _ := converted.Interface().(T)
			*ptr = typed
			return nil
		},
	}
}

// Nested binds a field holding a Value; import mutates it in place.
func Nested(name string, value Value) Field {
	return Field{
		Name: name,
		kind: func() FieldKind { return KindNested },
		get:  func() any { return value },
	}
}

// ListOf binds a list whose elements are rebuilt as fresh Values created by
// newElem.
func ListOf[E Value](name string, ptr *[]E, newElem func() E) Field {
	return Field{
		Name: name,
		kind: func() FieldKind { return KindList },
		get:  func() any { return *ptr },
		set: func(value any) error {
			if value == nil {
				*ptr = nil
				return nil
			}
			items, ok := value.([]any)
			if !ok {
				return &conversionError{want: reflect.TypeFor[[]E](), got: value}
			}
			out := make([]E, 0, len(items))
			for _, item := range items {
				elem, ok := item.(E)
				if !ok {
					return &conversionError{want: reflect.TypeFor[E](), got: item}
				}
				out = append(out, elem)
			}
			*ptr = out
			return nil
		},
		elem: func() Value { return newElem() },
	}
}

// MapOf binds a string-keyed mapping whose values are rebuilt as fresh
// Values created by newElem.
func MapOf[E Value](name string, ptr *map[string]E, newElem func() E) Field {
	return Field{
		Name: name,
		kind: func() FieldKind { return KindMap },
		get:  func() any { return *ptr },
		set: func(value any) error {
			if value == nil {
				*ptr = nil
				return nil
			}
			entries, ok := value.(map[string]any)
			if !ok {
				return &conversionError{want: reflect.TypeFor[map[string]E](), got: value}
			}
			out := make(map[string]E, len(entries))
			for key, item := range entries {
				elem, ok := item.(E)
				if !ok {
					return &conversionError{want: reflect.TypeFor[E](), got: item}
				}
				out[key] = elem
			}
			*ptr = out
			return nil
		},
		elem: func() Value { return newElem() },
	}
}

func extensionField(ext *Extensions, name string) Field {
	return Field{
		Name: name,
		kind: func() FieldKind { return kindOf((*ext)[name]) },
		get:  func() any { return (*ext)[name] },
		set: func(value any) error {
			(*ext)[name] = value
			return nil
		},
	}
}

var valueType = reflect.TypeFor[Value]()

func kindOf(value any) FieldKind {
	switch value.(type) {
	case nil:
		return KindScalar
	case Value:
		return KindNested
	}
	return kindOfType(reflect.TypeOf(value))
}

func kindOfType(typ reflect.Type) FieldKind {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	switch typ.Kind() {
	case reflect.Slice, reflect.Array:
		if typ.Elem().Kind() == reflect.Uint8 {
			return KindScalar
		}
		return KindList
	case reflect.Map:
		return KindMap
	default:
		return KindScalar
	}
}
