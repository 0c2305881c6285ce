package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// memoryEntry is a single value with its own deadline
type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
	element   *list.Element // LRU position
}

func (e *memoryEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is an in-process LRU store with per-entry TTL.
// Expired entries are dropped lazily on read and by CleanupExpired.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	lruList *list.List
	maxSize int
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// NewMemoryStore creates a store holding at most maxSize entries
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		lruList: list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[key]
	if !exists || entry.isExpired(m.now()) {
		m.misses++
		if exists {
			m.removeEntry(key)
		}
		return "", ErrMiss
	}

	m.lruList.MoveToFront(entry.element)
	m.hits++
	return entry.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	if entry, exists := m.entries[key]; exists {
		entry.value = value
		entry.expiresAt = expiresAt
		m.lruList.MoveToFront(entry.element)
		return nil
	}

	if m.lruList.Len() >= m.maxSize {
		m.evictLRU()
	}

	entry := &memoryEntry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	}
	entry.element = m.lruList.PushFront(key)
	m.entries[key] = entry
	return nil
}

func (m *MemoryStore) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeEntry(key)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Stats returns store statistics
func (m *MemoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hitRate float64
	if total := m.hits + m.misses; total > 0 {
		hitRate = float64(m.hits) / float64(total)
	}
	return Stats{
		Size:    m.lruList.Len(),
		MaxSize: m.maxSize,
		Hits:    m.hits,
		Misses:  m.misses,
		HitRate: hitRate,
	}
}

// Stats represents in-memory store statistics
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"maxSize"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (m *MemoryStore) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := make([]string, 0)
	for key, entry := range m.entries {
		if entry.isExpired(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		m.removeEntry(key)
	}
	return len(expired)
}

// StartCleanupWorker periodically drops expired entries until ctx is done
func (m *MemoryStore) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupExpired()
		case <-ctx.Done():
			return
		}
	}
}

// removeEntry must be called with the lock held
func (m *MemoryStore) removeEntry(key string) {
	if entry, exists := m.entries[key]; exists {
		m.lruList.Remove(entry.element)
		delete(m.entries, key)
	}
}

// evictLRU must be called with the lock held
func (m *MemoryStore) evictLRU() {
	back := m.lruList.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	m.lruList.Remove(back)
	delete(m.entries, key)
}
