package counters

import (
	"context"
	"sync"
)

// MemoryStore keeps namespaces in process memory
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]Values
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{namespaces: make(map[string]Values)}
}

func (s *MemoryStore) Load(ctx context.Context, namespace string) (Values, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.namespaces[namespace]
	if !ok {
		return Values{}, nil
	}
	return values.clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, namespace string, values Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.namespaces[namespace]
	if !ok {
		existing = Values{}
		s.namespaces[namespace] = existing
	}
	for k, v := range values {
		existing[k] = v
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
