package activity

import (
	"strings"
	"time"
)

// Entity lifecycle verbs.
const (
	VerbEntityLoaded   = "entity.loaded"
	VerbEntitySaved    = "entity.saved"
	VerbEntityMigrated = "entity.migrated"
	VerbEntityDeleted  = "entity.deleted"
)

// EntityObjectType is the object type of every entity event.
const EntityObjectType = "persist.entity"

// EntityEventInput carries what a store knows about one entity operation.
type EntityEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Location   string
	TypeTag    string
	Version    int
	SnapshotID string
	Metadata   map[string]any
	OccurredAt time.Time

	// FromVersion is set for migrations.
	FromVersion int
}

// BuildEntityLoadedEvent describes a successful load.
func BuildEntityLoadedEvent(input EntityEventInput) Event {
	return buildEntityEvent(VerbEntityLoaded, input)
}

// BuildEntitySavedEvent describes a successful save.
func BuildEntitySavedEvent(input EntityEventInput) Event {
	return buildEntityEvent(VerbEntitySaved, input)
}

// BuildEntityMigratedEvent describes a document upgraded during load.
func BuildEntityMigratedEvent(input EntityEventInput) Event {
	return buildEntityEvent(VerbEntityMigrated, input)
}

// BuildEntityDeletedEvent describes removal of the stored document.
func BuildEntityDeletedEvent(input EntityEventInput) Event {
	return buildEntityEvent(VerbEntityDeleted, input)
}

func buildEntityEvent(verb string, input EntityEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.TypeTag != "" {
		set("type", input.TypeTag)
	}
	if input.Version > 0 {
		set("version", input.Version)
	}
	if input.FromVersion > 0 {
		set("from_version", input.FromVersion)
	}
	if input.SnapshotID != "" {
		set("snapshot_id", input.SnapshotID)
	}

	objectID := strings.TrimSpace(input.Location)
	if objectID == "" {
		objectID = strings.TrimSpace(input.SnapshotID)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: EntityObjectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
