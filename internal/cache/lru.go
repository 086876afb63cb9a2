// Package cache provides the in-process LRU used to memoize match scores and
// ranked pages, and a Valkey-backed store for sharing ranked pages between
// API instances.
package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type lruEntry[V any] struct {
	key       string
	value     V
	prev      *lruEntry[V]
	next      *lruEntry[V]
	expiresAt time.Time
}

// LRU is a thread-safe least-recently-used cache with lazy TTL expiry.
// head.next is the most recently used entry, tail.prev the least.
type LRU[V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry[V]
	head     *lruEntry[V]
	tail     *lruEntry[V]

	hits      int64
	misses    int64
	evictions int64

	now func() time.Time
}

// NewLRU creates a cache. capacity <= 0 means 10000 entries, ttl <= 0 means
// entries never expire.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 10000
	}
	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry[V], capacity),
		head:     &lruEntry[V]{},
		tail:     &lruEntry[V]{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value and true if present and not expired.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if c.expired(entry) {
		c.removeEntry(entry)
		c.misses++
		return zero, false
	}
	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Add inserts or refreshes a value, evicting the oldest entries past capacity.
func (c *LRU[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &lruEntry[V]{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Purge drops every entry; stats are kept.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruEntry[V], c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Size: len(c.items)}
}

func (c *LRU[V]) expired(e *lruEntry[V]) bool {
	return !e.expiresAt.IsZero() && c.now().After(e.expiresAt)
}

func (c *LRU[V]) addToFront(e *lruEntry[V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[V]) unlink(e *lruEntry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *LRU[V]) moveToFront(e *lruEntry[V]) {
	c.unlink(e)
	c.addToFront(e)
}

func (c *LRU[V]) removeEntry(e *lruEntry[V]) {
	c.unlink(e)
	delete(c.items, e.key)
}

func (c *LRU[V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
	c.evictions++
}

// MemoryStore adapts an LRU of byte payloads to the generation-aware store
// API shared with ValkeyStore. Per-call TTLs are ignored; the LRU's TTL
// applies.
type MemoryStore struct {
	lru *LRU[[]byte]
	gen atomic.Int64
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: NewLRU[[]byte](capacity, ttl)}
}

// Generation returns the current generation. Readers take it before loading
// the data a payload is built from and pass it back to Get and Set.
func (s *MemoryStore) Generation(_ context.Context) (int64, error) {
	return s.gen.Load(), nil
}

func (s *MemoryStore) Get(_ context.Context, gen int64, key string) ([]byte, bool, error) {
	b, ok := s.lru.Get(generationKey(gen, key))
	return b, ok, nil
}

// Set stores value under gen. A payload built before an Invalidate lands
// under an old generation and is never read again.
func (s *MemoryStore) Set(_ context.Context, gen int64, key string, value []byte, _ time.Duration) error {
	s.lru.Add(generationKey(gen, key), value)
	return nil
}

// Invalidate moves to a new generation and drops every cached payload.
func (s *MemoryStore) Invalidate(_ context.Context) error {
	s.gen.Add(1)
	s.lru.Purge()
	return nil
}

func generationKey(gen int64, key string) string {
	return strconv.FormatInt(gen, 10) + ":" + key
}
