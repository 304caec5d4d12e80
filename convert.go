package persist

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

type conversionError struct {
	want reflect.Type
	got  any
}

func (e *conversionError) Error() string {
	return fmt.Sprintf("cannot assign %s to %s", kindName(e.got), e.want)
}

// convertTo converts a document value into a Go value of type typ. Null
// becomes the zero value; numbers are range checked.
func convertTo(typ reflect.Type, src any) (reflect.Value, error) {
	if src == nil {
		return reflect.Zero(typ), nil
	}
	sv := reflect.ValueOf(src)
	if typ.Kind() == reflect.Interface {
		if !sv.Type().Implements(typ) {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		out := reflect.New(typ).Elem()
		out.Set(sv)
		return out, nil
	}
	if sv.Type().AssignableTo(typ) && typ.Kind() != reflect.Slice && typ.Kind() != reflect.Map {
		out := reflect.New(typ).Elem()
		out.Set(sv)
		return out, nil
	}

	out := reflect.New(typ).Elem()
	if typ == timeType {
		raw, ok := src.(string)
		if !ok {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		out.Set(reflect.ValueOf(parsed))
		return out, nil
	}
	switch typ.Kind() {
	case reflect.String:
		if sv.Kind() != reflect.String {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		out.SetString(sv.String())
	case reflect.Bool:
		if sv.Kind() != reflect.Bool {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		out.SetBool(sv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(src)
		if !ok || out.OverflowInt(n) {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := toInt64(src)
		if !ok || n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		out.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(src)
		if !ok || out.OverflowFloat(f) {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		out.SetFloat(f)
	case reflect.Slice:
		seq, ok := asSequence(src)
		if !ok {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		slice := reflect.MakeSlice(typ, len(seq), len(seq))
		for i, item := range seq {
			elem, err := convertTo(typ.Elem(), item)
			if err != nil {
				return reflect.Value{}, err
			}
			slice.Index(i).Set(elem)
		}
		out.Set(slice)
	case reflect.Map:
		entries, ok := asMapping(src)
		if !ok {
			return reflect.Value{}, &conversionError{want: typ, got: src}
		}
		m := reflect.MakeMapWithSize(typ, len(entries))
		for key, item := range entries {
			mapKey, err := convertKey(typ.Key(), key)
			if err != nil {
				return reflect.Value{}, err
			}
			elem, err := convertTo(typ.Elem(), item)
			if err != nil {
				return reflect.Value{}, err
			}
			m.SetMapIndex(mapKey, elem)
		}
		out.Set(m)
	case reflect.Pointer:
		elem, err := convertTo(typ.Elem(), src)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(elem)
		out.Set(ptr)
	default:
		return reflect.Value{}, &conversionError{want: typ, got: src}
	}
	return out, nil
}

// convertKey parses a document mapping key back into the key type of a Go
// map, following the encoding/json rules: TextUnmarshaler first, then the
// string, integer, float and bool kinds.
func convertKey(typ reflect.Type, key string) (reflect.Value, error) {
	if reflect.PointerTo(typ).Implements(textUnmarshalerType) {
		ptr := reflect.New(typ)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(key)); err != nil {
			return reflect.Value{}, fmt.Errorf("map key %q: %w", key, err)
		}
		return ptr.Elem(), nil
	}
	out := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.String:
		out.SetString(key)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, typ.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map key %q: %w", key, err)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(key, 10, typ.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map key %q: %w", key, err)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(key, typ.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map key %q: %w", key, err)
		}
		out.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(key)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map key %q: %w", key, err)
		}
		out.SetBool(b)
	case reflect.Interface:
		if !reflect.TypeFor[string]().Implements(typ) {
			return reflect.Value{}, fmt.Errorf("map key %q: cannot assign to %s", key, typ)
		}
		out.Set(reflect.ValueOf(key))
	default:
		return reflect.Value{}, fmt.Errorf("map key %q: unsupported key type %s", key, typ)
	}
	return out, nil
}

func toInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int:
		return int64(typed), true
	case int8:
		return int64(typed), true
	case int16:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	case uint:
		return int64(typed), uint64(typed) <= math.MaxInt64
	case uint8:
		return int64(typed), true
	case uint16:
		return int64(typed), true
	case uint32:
		return int64(typed), true
	case uint64:
		return int64(typed), typed <= math.MaxInt64
	case float32:
		return floatToInt(float64(typed))
	case float64:
		return floatToInt(typed)
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return n, true
		}
		f, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(value any) (float64, bool) {
	switch typed := value.(type) {
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	default:
		n, ok := toInt64(value)
		return float64(n), ok
	}
}

func toInt(value any) (int, bool) {
	n, ok := toInt64(value)
	if !ok || n > math.MaxInt || n < math.MinInt {
		return 0, false
	}
	return int(n), true
}
