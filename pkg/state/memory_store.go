package state

import (
	"context"
	"sync"

	persist "github.com/goliatone/go-persist"
	"github.com/goliatone/go-persist/internal/codec"
)

// MemoryStore keeps encoded documents in memory. Documents go through the
// same codec as FileStore, so loads observe JSON number and key coercion.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	codec   *codec.Codec
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string][]byte{},
		codec:   codec.New(codec.WithIndent(0)),
	}
}

func (s *MemoryStore) Load(ctx context.Context, location string) (persist.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if location == "" {
		return nil, false, ErrLocationRequired
	}
	s.mu.RLock()
	payload, ok := s.records[location]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	raw, err := s.codec.Decode(payload)
	if err != nil {
		return nil, false, &CorruptDocumentError{Location: location, Err: err}
	}
	return persist.Document(raw), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, location string, doc persist.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if location == "" {
		return ErrLocationRequired
	}
	payload, err := s.codec.Encode(map[string]any(doc))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[location] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, location)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, location string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.records[location]
	s.mu.RUnlock()
	return ok, nil
}

// Raw returns the encoded document stored at location.
func (s *MemoryStore) Raw(location string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.records[location]
	return append([]byte(nil), payload...), ok
}

// SetRaw stores payload verbatim, bypassing the codec.
func (s *MemoryStore) SetRaw(location string, payload []byte) {
	s.mu.Lock()
	s.records[location] = append([]byte(nil), payload...)
	s.mu.Unlock()
}
