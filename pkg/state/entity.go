package state

import (
	"context"
	"fmt"
	"time"

	persist "github.com/goliatone/go-persist"
	"github.com/goliatone/go-persist/pkg/activity"
	"github.com/google/uuid"
)

// EntityOption configures an Entity.
type EntityOption func(*entityConfig)

type entityConfig struct {
	codec    *persist.Codec
	logger   persist.Logger
	activity *activity.Emitter
}

// WithCodec selects the codec used to export and import the value.
func WithCodec(codec *persist.Codec) EntityOption {
	return func(cfg *entityConfig) {
		cfg.codec = codec
	}
}

// WithLogger attaches a logger for entity events.
func WithLogger(logger persist.Logger) EntityOption {
	return func(cfg *entityConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithActivity emits lifecycle events through emitter. Emission failures
// are logged and never fail the operation.
func WithActivity(emitter *activity.Emitter) EntityOption {
	return func(cfg *entityConfig) {
		cfg.activity = emitter
	}
}

// Entity binds a value to a location in a Store.
type Entity[V persist.Value] struct {
	value    V
	store    Store
	location string
	cfg      entityConfig
	report   persist.Report
}

// NewEntity binds value to location. Nothing is read until Load.
func NewEntity[V persist.Value](store Store, location string, value V, opts ...EntityOption) (*Entity[V], error) {
	if store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if location == "" {
		return nil, ErrLocationRequired
	}
	cfg := entityConfig{
		codec:  persist.NewCodec(),
		logger: persist.NopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.codec == nil {
		cfg.codec = persist.NewCodec()
	}
	return &Entity[V]{value: value, store: store, location: location, cfg: cfg}, nil
}

// Value returns the bound value. All handles share it.
func (e *Entity[V]) Value() V {
	return e.value
}

// Location returns the store location.
func (e *Entity[V]) Location() string {
	return e.location
}

// LastReport returns the report of the most recent Load.
func (e *Entity[V]) LastReport() persist.Report {
	return e.report
}

// Load imports the stored document into the value. A missing document
// leaves the value untouched. A document upgraded by migration is saved
// back immediately.
func (e *Entity[V]) Load(ctx context.Context) error {
	doc, ok, err := e.store.Load(ctx, e.location)
	if err != nil {
		return fmt.Errorf("state: load %q: %w", e.location, err)
	}
	if !ok {
		e.report = persist.Report{Type: e.value.TypeTag(), FromVersion: persist.DefaultVersion, ToVersion: persist.DefaultVersion}
		return nil
	}

	report, err := e.cfg.codec.Import(doc, e.value)
	if err != nil {
		return fmt.Errorf("state: import %q: %w", e.location, err)
	}
	e.report = report
	if !report.Clean() {
		e.cfg.logger.Log(persist.LogEvent{
			Op:      "entity.load",
			Type:    report.Type,
			Path:    e.location,
			Message: fmt.Sprintf("%d skipped, %d mismatched", len(report.Skipped), len(report.Mismatches)),
		})
	}
	e.emit(ctx, activity.BuildEntityLoadedEvent(e.eventInput(report.ToVersion, "")))

	if !report.NeedsSave() {
		return nil
	}
	if report.Migrated() {
		migrated := e.eventInput(report.ToVersion, "")
		migrated.FromVersion = report.FromVersion
		e.emit(ctx, activity.BuildEntityMigratedEvent(migrated))
	}
	if err := e.Save(ctx); err != nil {
		return fmt.Errorf("state: save migrated %q: %w", e.location, err)
	}
	return nil
}

// Save exports the value and writes it to the store.
func (e *Entity[V]) Save(ctx context.Context) error {
	doc, err := e.cfg.codec.Export(e.value)
	if err != nil {
		return fmt.Errorf("state: export %q: %w", e.location, err)
	}
	if err := e.store.Save(ctx, e.location, doc); err != nil {
		return fmt.Errorf("state: save %q: %w", e.location, err)
	}
	e.emit(ctx, activity.BuildEntitySavedEvent(e.eventInput(doc.Version(), uuid.NewString())))
	return nil
}

// Delete removes the stored document. The in-memory value is kept.
func (e *Entity[V]) Delete(ctx context.Context) error {
	if err := e.store.Delete(ctx, e.location); err != nil {
		return fmt.Errorf("state: delete %q: %w", e.location, err)
	}
	e.emit(ctx, activity.BuildEntityDeletedEvent(e.eventInput(0, "")))
	return nil
}

// Exists reports whether a document is stored for the entity.
func (e *Entity[V]) Exists(ctx context.Context) (bool, error) {
	return e.store.Exists(ctx, e.location)
}

func (e *Entity[V]) eventInput(version int, snapshotID string) activity.EntityEventInput {
	return activity.EntityEventInput{
		Location:   e.location,
		TypeTag:    e.value.TypeTag(),
		Version:    version,
		SnapshotID: snapshotID,
		OccurredAt: time.Now(),
	}
}

func (e *Entity[V]) emit(ctx context.Context, event activity.Event) {
	if !e.cfg.activity.Enabled() {
		return
	}
	if err := e.cfg.activity.Emit(ctx, event); err != nil {
		e.cfg.logger.Log(persist.LogEvent{Op: "entity.activity", Type: e.value.TypeTag(), Path: e.location, Message: event.Verb, Err: err})
	}
}
