// Package codec turns persisted documents into bytes and back.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNotObject is returned when the payload root is not a JSON object.
	ErrNotObject = errors.New("codec: document root must be an object")
	// ErrTrailingData is returned when bytes follow the document.
	ErrTrailingData = errors.New("codec: unexpected data after document")
)

// DefaultIndent matches the on-disk layout of existing documents.
const DefaultIndent = 4

// Option configures a Codec.
type Option func(*Codec)

// Codec encodes documents as indented JSON and decodes them with numbers
// normalised to int64 (integral) or float64.
type Codec struct {
	indent     int
	escapeHTML bool
}

// WithIndent sets the number of spaces per nesting level. Zero produces
// compact output.
func WithIndent(spaces int) Option {
	return func(c *Codec) {
		if spaces >= 0 {
			c.indent = spaces
		}
	}
}

// WithEscapeHTML toggles escaping of <, > and & in strings.
func WithEscapeHTML(escape bool) Option {
	return func(c *Codec) {
		c.escapeHTML = escape
	}
}

// New constructs a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{indent: DefaultIndent}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Encode serialises doc.
func (c *Codec) Encode(doc map[string]any) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("codec: document is nil")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(c.escapeHTML)
	if c.indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", c.indent))
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses payload into a document tree of map[string]any, []any,
// string, bool, int64, float64 and nil.
func (c *Codec) Decode(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Normalize(doc).(map[string]any), nil
}

// Normalize replaces json.Number leaves with int64 or float64 in place and
// returns value.
func Normalize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, item := range typed {
			typed[key] = Normalize(item)
		}
		return typed
	case []any:
		for i, item := range typed {
			typed[i] = Normalize(item)
		}
		return typed
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return n
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	default:
		return value
	}
}
