package state

import (
	"context"
	"fmt"

	persist "github.com/goliatone/go-persist"
)

// Repository hands out one Entity per identity key for the life of the
// repository. The first Open for a key builds the value with New, binds it
// to Location(key) and loads it; later calls return the same Entity.
//
// A Repository must not be copied after first use.
type Repository[K comparable, V persist.Value] struct {
	Store    Store
	Location func(K) string
	New      func(K) V
	Options  []EntityOption

	// SkipLoadOnOpen leaves newly opened entities unloaded.
	SkipLoadOnOpen bool

	entities persist.Registry[K, *Entity[V]]
}

// Open returns the entity registered under key. A failing first load
// registers nothing, so the next Open retries.
func (r *Repository[K, V]) Open(ctx context.Context, key K) (*Entity[V], error) {
	if r.Store == nil || r.Location == nil || r.New == nil {
		return nil, fmt.Errorf("state: repository requires Store, Location and New")
	}
	entity, _, err := r.entities.GetOrCreate(key, func(key K) (*Entity[V], error) {
		entity, err := NewEntity(r.Store, r.Location(key), r.New(key), r.Options...)
		if err != nil {
			return nil, err
		}
		if !r.SkipLoadOnOpen {
			if err := entity.Load(ctx); err != nil {
				return nil, err
			}
		}
		return entity, nil
	})
	return entity, err
}

// Lookup returns an already opened entity.
func (r *Repository[K, V]) Lookup(key K) (*Entity[V], bool) {
	return r.entities.Lookup(key)
}

// Len reports how many entities have been opened.
func (r *Repository[K, V]) Len() int {
	return r.entities.Len()
}
