package persist

import "sync"

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type programCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewProgramCache returns an unbounded, goroutine-safe ProgramCache.
func NewProgramCache() ProgramCache {
	return &programCache{programs: map[string]any{}}
}

func (c *programCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	program, ok := c.programs[key]
	return program, ok
}

func (c *programCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}
