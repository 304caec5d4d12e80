package persist

import (
	"reflect"
	"sync"
)

// Registry keeps exactly one instance per identity key for the life of the
// process. Entries are never evicted. The zero value is ready to use.
//
// Factories run outside the registry lock, serialized per key, so a factory
// may request other keys. A factory that requests its own key deadlocks.
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
	pending map[K]*sync.Mutex
}

// NewRegistry constructs an empty registry.
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{entries: map[K]V{}, pending: map[K]*sync.Mutex{}}
}

// GetOrCreate returns the instance registered under key, building it with
// factory on first request. created reports whether factory ran and
// succeeded. A failing factory registers nothing.
func (r *Registry[K, V]) GetOrCreate(key K, factory func(K) (V, error)) (value V, created bool, err error) {
	r.mu.Lock()
	if existing, ok := r.entries[key]; ok {
		r.mu.Unlock()
		return existing, false, nil
	}
	if r.pending == nil {
		r.pending = map[K]*sync.Mutex{}
	}
	build, ok := r.pending[key]
	if !ok {
		build = &sync.Mutex{}
		r.pending[key] = build
	}
	r.mu.Unlock()

	build.Lock()
	defer build.Unlock()
	if existing, ok := r.Lookup(key); ok {
		return existing, false, nil
	}

	value, err = factory(key)
	if err != nil {
		var zero V
		return zero, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = map[K]V{}
	}
	r.entries[key] = value
	delete(r.pending, key)
	return value, true, nil
}

// Lookup returns the instance registered under key, if any.
func (r *Registry[K, V]) Lookup(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.entries[key]
	return value, ok
}

// Len reports the number of registered instances.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type sharedKey struct {
	typ reflect.Type
	key any
}

var shared Registry[sharedKey, any]

// Shared returns the process-wide instance of V registered under key,
// creating it with factory on first request. Entries are keyed by V's type
// and by key including its dynamic type, so MemberID(1) and ItemID(1) never
// collide.
func Shared[V any, K comparable](key K, factory func(K) (V, error)) (V, error) {
	value, _, err := shared.GetOrCreate(sharedKey{typ: reflect.TypeFor[V](), key: key}, func(sharedKey) (any, error) {
		return factory(key)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	typed, _ := value.(V)
	return typed, nil
}
