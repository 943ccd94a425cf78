package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value   []byte
	expires time.Time
	tags    []string
}

// Memory is an in-process Cache. Expired entries are dropped lazily on read
// and swept every purgeEvery writes.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	tags    map[string]map[string]struct{}
	writes  int

	now func() time.Time
}

const purgeEvery = 256

// NewMemory returns an empty cache. A nil now uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]memEntry),
		tags:    make(map[string]map[string]struct{}),
		now:     now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(e.expires) {
		m.removeLocked(key)
		return nil, ErrMiss
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(key)

	v := make([]byte, len(value))
	copy(v, value)
	m.entries[key] = memEntry{value: v, expires: m.now().Add(ttl), tags: append([]string(nil), tags...)}
	for _, tag := range tags {
		set, ok := m.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			m.tags[tag] = set
		}
		set[key] = struct{}{}
	}

	m.writes++
	if m.writes%purgeEvery == 0 {
		m.purgeLocked()
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		m.removeLocked(key)
	}
	return nil
}

func (m *Memory) InvalidateTags(_ context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tag := range tags {
		for key := range m.tags[tag] {
			m.removeLocked(key)
		}
		delete(m.tags, tag)
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) removeLocked(key string) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	for _, tag := range e.tags {
		if set, ok := m.tags[tag]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(m.tags, tag)
			}
		}
	}
}

func (m *Memory) purgeLocked() {
	now := m.now()
	for key, e := range m.entries {
		if !now.Before(e.expires) {
			m.removeLocked(key)
		}
	}
}
