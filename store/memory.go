package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps values in a process-local map. Prefixes let several
// MemoryStores share one backing map, the way several apps share a browser
// origin.
type MemoryStore struct {
	prefix string
	data   *sharedMap
}

type sharedMap struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		prefix: normalizePrefix(prefix),
		data:   &sharedMap{m: make(map[string][]byte)},
	}
}

// WithPrefix returns a store over the same map under a different prefix.
func (s *MemoryStore) WithPrefix(prefix string) *MemoryStore {
	return &MemoryStore{prefix: normalizePrefix(prefix), data: s.data}
}

func (s *MemoryStore) key(k string) string {
	return s.prefix + k
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()

	v, ok := s.data.m[s.key(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	s.data.mu.Lock()
	s.data.m[s.key(key)] = v
	s.data.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.data.mu.Lock()
	delete(s.data.m, s.key(key))
	s.data.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, scope Scope) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	if scope == ScopeAll {
		s.data.m = make(map[string][]byte)
		return nil
	}
	for k := range s.data.m {
		if strings.HasPrefix(k, s.prefix) {
			delete(s.data.m, k)
		}
	}
	return nil
}

// Len reports the number of keys under this store's prefix.
func (s *MemoryStore) Len() int {
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()

	n := 0
	for k := range s.data.m {
		if strings.HasPrefix(k, s.prefix) {
			n++
		}
	}
	return n
}
