package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/medfolio/backend/internal/storage/models"
)

type memoryEntry struct {
	key       string
	value     []models.DocumentRecord
	expiresAt time.Time
}

// Memory is a fixed-capacity LRU with a sliding TTL: every hit resets the
// entry's expiry. Eviction happens inline on Set; expired entries are also
// dropped lazily on Get.
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recently used
	items    map[string]*list.Element
}

func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

func (m *Memory) Get(_ context.Context, query, userID string, filters Filters) ([]models.DocumentRecord, bool) {
	key := Key(query, userID, filters)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*memoryEntry)
	if now.After(entry.expiresAt) {
		m.order.Remove(elem)
		delete(m.items, key)
		return nil, false
	}

	entry.expiresAt = now.Add(m.ttl)
	m.order.MoveToFront(elem)
	return entry.value, true
}

func (m *Memory) Set(_ context.Context, query, userID string, filters Filters, value []models.DocumentRecord) {
	key := Key(query, userID, filters)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = now.Add(m.ttl)
		m.order.MoveToFront(elem)
		return
	}

	elem := m.order.PushFront(&memoryEntry{
		key:       key,
		value:     value,
		expiresAt: now.Add(m.ttl),
	})
	m.items[key] = elem

	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoryEntry).key)
	}
}

// InvalidateUser evicts every entry in the user's namespace. Invalidation
// is coarse: a document mutation cannot cheaply know which cached queries
// it affects.
func (m *Memory) InvalidateUser(_ context.Context, userID string) {
	prefix := userID + ":"

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, elem := range m.items {
		if strings.HasPrefix(key, prefix) {
			m.order.Remove(elem)
			delete(m.items, key)
		}
	}
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Size: len(m.items), MaxSize: m.capacity, TTL: m.ttl}
}
