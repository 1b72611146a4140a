package artifact

import (
	"slices"
	"sync"
)

// InMemoryStore keeps all blobs in a nested map guarded by an RWMutex. Data
// is copied on save and retrieval.
//
// Layout: namespace -> name -> raw bytes
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]map[string][]byte
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the blob for namespace and name.
func (s *InMemoryStore) Save(namespace, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[namespace]; !ok {
		s.blobs[namespace] = make(map[string][]byte)
	}
	s.blobs[namespace][name] = slices.Clone(data)
	return nil
}

// Get returns a copy of the stored blob or ErrNotFound.
func (s *InMemoryStore) Get(namespace, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[namespace][name]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

// List returns the blob names in namespace, sorted.
func (s *InMemoryStore) List(namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.blobs[namespace]
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Delete removes the blob if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(namespace, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.blobs[namespace]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[name]; !ok {
		return ErrNotFound
	}
	delete(m, name)
	return nil
}
