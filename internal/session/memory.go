package session

import (
	"context"
	"sync"

	"github.com/threatflux/violetearClient/internal/models"
)

// MemoryStore keeps serialized sessions in process memory
type MemoryStore struct {
	mu   sync.Mutex
	key  string
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(key string) *MemoryStore {
	return &MemoryStore{
		key:  key,
		data: make(map[string][]byte),
	}
}

// Restore implements Store
func (s *MemoryStore) Restore(ctx context.Context) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[s.key]
	if !ok {
		return models.Session{}
	}
	sess, err := decode(raw)
	if err != nil {
		return models.Session{}
	}
	return sess
}

// Persist implements Store
func (s *MemoryStore) Persist(ctx context.Context, sess models.Session) {
	raw, err := encode(sess)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.data[s.key] = raw
	s.mu.Unlock()
}

// SetRaw stores raw bytes under the store's key, bypassing encoding
func (s *MemoryStore) SetRaw(raw []byte) {
	s.mu.Lock()
	s.data[s.key] = raw
	s.mu.Unlock()
}

var _ Store = (*MemoryStore)(nil)
