package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " entity.saved ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " persist.entity ",
		ObjectID:   " members/ann.json ",
		Channel:    " persist ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "entity.saved" || got.ObjectType != "persist.entity" || got.ObjectID != "members/ann.json" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Channel != "persist" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifySkipsInvalidEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: "entity.saved"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events()))
	}
}

func TestHooksNotifyJoinsErrors(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	hooks := Hooks{
		HookFunc(func(context.Context, Event) error { return first }),
		nil,
		&CaptureHook{},
		HookFunc(func(context.Context, Event) error { return second }),
	}
	err := hooks.Notify(context.Background(), BuildEntitySavedEvent(EntityEventInput{Location: "a.json"}))
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected joined errors, got %v", err)
	}
}

func TestEmitterAppliesDefaults(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: "system"})

	if err := emitter.Emit(context.Background(), BuildEntityLoadedEvent(EntityEventInput{Location: "a.json"})); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Channel != DefaultChannel || events[0].ActorID != "system" {
		t.Fatalf("expected defaults applied, got %+v", events[0])
	}
}

func TestEmitterDisabled(t *testing.T) {
	capture := &CaptureHook{}
	cases := []*Emitter{
		nil,
		NewEmitter(Hooks{capture}, Config{Enabled: false}),
		NewEmitter(Hooks{nil}, Config{Enabled: true}),
	}
	for i, emitter := range cases {
		if emitter.Enabled() {
			t.Fatalf("case %d: expected disabled emitter", i)
		}
		if err := emitter.Emit(context.Background(), BuildEntitySavedEvent(EntityEventInput{Location: "a.json"})); err != nil {
			t.Fatalf("case %d: emit: %v", i, err)
		}
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("disabled emitters must not notify")
	}
}

func TestBuildEntityEvents(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	input := EntityEventInput{
		Location:    " members/ann.json ",
		TypeTag:     "MemberData",
		Version:     2,
		FromVersion: 1,
		SnapshotID:  "snap-1",
		Metadata:    map[string]any{"source": "test"},
		OccurredAt:  at,
	}
	builders := map[string]func(EntityEventInput) Event{
		VerbEntityLoaded:   BuildEntityLoadedEvent,
		VerbEntitySaved:    BuildEntitySavedEvent,
		VerbEntityMigrated: BuildEntityMigratedEvent,
		VerbEntityDeleted:  BuildEntityDeletedEvent,
	}
	for verb, build := range builders {
		event := build(input)
		if event.Verb != verb || event.ObjectType != EntityObjectType || event.ObjectID != "members/ann.json" {
			t.Fatalf("%s: unexpected event %+v", verb, event)
		}
		if event.Metadata["type"] != "MemberData" || event.Metadata["version"] != 2 || event.Metadata["from_version"] != 1 {
			t.Fatalf("%s: unexpected metadata %+v", verb, event.Metadata)
		}
		if event.Metadata["snapshot_id"] != "snap-1" || event.Metadata["source"] != "test" {
			t.Fatalf("%s: unexpected metadata %+v", verb, event.Metadata)
		}
		if !event.OccurredAt.Equal(at) {
			t.Fatalf("%s: unexpected timestamp %v", verb, event.OccurredAt)
		}
	}
	if input.Metadata["type"] != nil {
		t.Fatalf("input metadata must not be modified")
	}
}

func TestBuildEntityEventFallsBackToSnapshotID(t *testing.T) {
	event := BuildEntityDeletedEvent(EntityEventInput{SnapshotID: "snap-9"})
	if event.ObjectID != "snap-9" {
		t.Fatalf("expected snapshot id as object id, got %q", event.ObjectID)
	}
}
