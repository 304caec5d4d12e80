package persist

import "reflect"

// DefaultMaxDepth bounds nesting during export and import. Value graphs are
// expected to be acyclic; the limit turns a cycle into ErrMaxDepth.
const DefaultMaxDepth = 256

// Codec exports Values to Documents and imports Documents into Values.
type Codec struct {
	cfg codecConfig
}

// Option configures a Codec.
type Option func(*codecConfig)

type codecConfig struct {
	logger     Logger
	migrators  map[string]VersionMigrator
	maxDepth   int
	strictTags bool
}

// NewCodec constructs a Codec with the supplied options.
func NewCodec(opts ...Option) *Codec {
	return &Codec{cfg: applyOptions(opts)}
}

func applyOptions(opts []Option) codecConfig {
	cfg := codecConfig{
		logger:     noopLogger{},
		maxDepth:   DefaultMaxDepth,
		strictTags: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithMigrator registers migrator for documents of typeTag. It takes
// precedence over the value's own ConvertVersion method.
func WithMigrator(typeTag string, migrator VersionMigrator) Option {
	return func(cfg *codecConfig) {
		if typeTag == "" || migrator == nil {
			return
		}
		if cfg.migrators == nil {
			cfg.migrators = map[string]VersionMigrator{}
		}
		cfg.migrators[typeTag] = migrator
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(cfg *codecConfig) {
		if depth > 0 {
			cfg.maxDepth = depth
		}
	}
}

// WithStrictTypeTags toggles verification of nested type tags on import.
// Enabled by default.
func WithStrictTypeTags(strict bool) Option {
	return func(cfg *codecConfig) {
		cfg.strictTags = strict
	}
}

// Logger returns the codec's logger, never nil.
func (c *Codec) Logger() Logger {
	if c == nil || c.cfg.logger == nil {
		return noopLogger{}
	}
	return c.cfg.logger
}

func (c *Codec) migratorFor(target Value) VersionMigrator {
	if c != nil && c.cfg.migrators != nil {
		if migrator, ok := c.cfg.migrators[target.TypeTag()]; ok {
			return migrator
		}
	}
	if migrator, ok := target.(VersionMigrator); ok {
		return migrator
	}
	return nil
}

var defaultCodec = NewCodec()

// Export serialises v with the default codec.
func Export(v Value) (Document, error) {
	return defaultCodec.Export(v)
}

// Import deserialises doc into target with the default codec.
func Import(doc Document, target Value) (Report, error) {
	return defaultCodec.Import(doc, target)
}

// Validate invokes the Validate method on value when present.
func Validate(value any) error {
	if v, ok := value.(Validator); ok {
		return v.Validate()
	}
	if rv := reflect.ValueOf(value); rv.IsValid() && rv.Kind() != reflect.Pointer && rv.CanAddr() {
		if v, ok := rv.Addr().Interface().(Validator); ok {
			return v.Validate()
		}
	}
	return nil
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
