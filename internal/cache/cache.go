// Package cache stores rendered dashboards keyed by store version and
// filter state.
package cache

import (
	"context"
	"sync"
)

// Cache is a byte-value cache. Misses and backend failures are both
// reported as a miss by Get; callers recompute in either case.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
}

// Memory is a bounded in-process cache evicting the oldest entry first.
type Memory struct {
	mu    sync.Mutex
	max   int
	data  map[string][]byte
	order []string
}

// NewMemory creates a cache holding at most max entries. max <= 0 disables
// caching.
func NewMemory(max int) *Memory {
	return &Memory{
		max:  max,
		data: make(map[string][]byte),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if m.max <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; !ok {
		for len(m.order) >= m.max {
			delete(m.data, m.order[0])
			m.order = m.order[1:]
		}
		m.order = append(m.order, key)
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
