package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps failure records in a process-local map.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, identity string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identity]
	return rec, ok, nil
}

func (s *MemoryStore) Increment(_ context.Context, identity string, at time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[identity]
	rec.Identity = identity
	rec.Count++
	rec.LastAttemptAt = at
	s.records[identity] = rec
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	delete(s.records, identity)
	s.mu.Unlock()
	return nil
}
