package cache

import (
	"context"
	"sync"
)

// Memory is the in-process Store. With MaxItems zero it grows without bound;
// otherwise the oldest entries are evicted once the cap is passed.
type Memory struct {
	MaxItems int

	mu    sync.RWMutex
	items map[string]Entry
}

func NewMemory(maxItems int) *Memory {
	return &Memory{MaxItems: maxItems, items: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	return e, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]Entry)
	}
	m.items[key] = e
	if m.MaxItems > 0 {
		for len(m.items) > m.MaxItems {
			m.evictOldest(key)
		}
	}
	return nil
}

// Len reports the number of stored entries, fresh or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// evictOldest drops the entry with the earliest FetchedAt other than keep.
// Callers hold the write lock.
func (m *Memory) evictOldest(keep string) {
	var (
		victim string
		found  bool
	)
	for k, e := range m.items {
		if k == keep {
			continue
		}
		if !found || e.FetchedAt.Before(m.items[victim].FetchedAt) {
			victim, found = k, true
		}
	}
	if !found {
		return
	}
	delete(m.items, victim)
}
