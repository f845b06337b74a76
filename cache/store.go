// Package cache provides a transparent caching wrapper for primitives,
// backed by a bounded in-process store with LRU eviction and per-entry TTL.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key        string
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return e.ttl > 0 && !now.Before(e.insertedAt.Add(e.ttl))
}

// store is a bounded key-value store with LRU eviction and per-entry TTL.
//
// A read that hits refreshes LRU recency but never the TTL (no sliding
// expiration). Recency reordering on read is itself a mutation, so reads
// take the single mutex too.
type store struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
}

func newStore(maxEntries int) *store {
	return &store{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (s *store) get(key string, now time.Time) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*entry)
	if ent.expired(now) {
		s.order.Remove(elem)
		delete(s.entries, key)
		return nil, false
	}
	s.order.MoveToFront(elem)
	return ent.value, true
}

func (s *store) set(key string, value any, ttl time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.insertedAt = now
		ent.ttl = ttl
		s.order.MoveToFront(elem)
		return
	}

	elem := s.order.PushFront(&entry{
		key:        key,
		value:      value,
		insertedAt: now,
		ttl:        ttl,
	})
	s.entries[key] = elem

	for s.maxEntries > 0 && s.order.Len() > s.maxEntries {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*entry).key)
	}
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
