package memory

import (
	"context"
	"sync"
)

type memStore struct {
	maxRecords int
	sessions   map[string][]Record
	mu         sync.RWMutex
}

// NewMemStore creates a Store backed by in-process memory. Each session
// retains at most maxRecords records; maxRecords <= 0 uses
// DefaultMaxRecords.
func NewMemStore(maxRecords int) Store {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &memStore{
		maxRecords: maxRecords,
		sessions:   make(map[string][]Record),
	}
}

func (s *memStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := append(s.sessions[rec.SessionID], rec)
	if over := len(recs) - s.maxRecords; over > 0 {
		recs = recs[over:]
	}
	s.sessions[rec.SessionID] = recs
	return nil
}

func (s *memStore) Recent(_ context.Context, sessionID string, n int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.sessions[sessionID]
	if n <= 0 || n > len(recs) {
		n = len(recs)
	}

	out := make([]Record, 0, n)
	for i := len(recs) - 1; i >= len(recs)-n; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (s *memStore) Search(_ context.Context, sessionID, query string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.sessions[sessionID]
	var out []Record
	for i := len(recs) - 1; i >= 0; i-- {
		if !matches(recs[i], query) {
			continue
		}
		out = append(out, recs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
