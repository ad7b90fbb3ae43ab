// Package cache implements a sharded, thread-safe LRU used by the asset
// hot-reload watcher to hold last-seen file modification times without
// serializing every lookup through one lock.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// DefaultShardCount is the number of shards for reduced lock contention.
// Must be a power of 2 for fast modulo via bitwise AND.
const DefaultShardCount = 16

const shardMask = DefaultShardCount - 1

// DefaultCapacity is the default maximum entries per shard.
const DefaultCapacity = 256

// Hasher computes a shard-selection hash for a key.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Uint64Hasher returns the key itself as its hash (identity hash), the
// right choice for already-well-distributed keys like interned asset IDs.
func Uint64Hasher(u uint64) uint64 { return u }

// Stats reports cache hit/miss/eviction counters.
type Stats struct {
	Len           int
	Capacity      int
	TotalCapacity int
	Hits          uint64
	Misses        uint64
	HitRate       float64
	Evictions     uint64
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[K, V]
	lru     *lruList[K]
}

type entry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// Cache is a sharded LRU cache. Total capacity is approximately
// capacity * DefaultShardCount.
type Cache[K comparable, V any] struct {
	shards   [DefaultShardCount]*shard[K, V]
	hasher   Hasher[K]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a sharded cache with the given per-shard capacity (<=0 uses
// DefaultCapacity) and shard-selection hasher.
func New[K comparable, V any](capacity int, hasher Hasher[K]) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[K, V]{hasher: hasher, capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{
			entries: make(map[K]*entry[K, V]),
			lru:     newLRUList[K](),
		}
	}
	return c
}

func (c *Cache[K, V]) shardFor(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get returns the cached value for key and promotes it to
// most-recently-used on a hit.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	sh := c.shardFor(key)

	sh.mu.RLock()
	_, exists := sh.entries[key]
	sh.mu.RUnlock()
	if !exists {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	sh.mu.Lock()
	e, ok := sh.entries[key]
	if !ok {
		sh.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	sh.lru.MoveToFront(e.node)
	value := e.value
	sh.mu.Unlock()

	c.hits.Add(1)
	return value, true
}

// Set stores value under key, evicting the least-recently-used entry in
// its shard if the shard is at capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	sh := c.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if existing, ok := sh.entries[key]; ok {
		existing.value = value
		sh.lru.MoveToFront(existing.node)
		return
	}

	for sh.lru.Len() >= c.capacity {
		oldest, ok := sh.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(sh.entries, oldest)
		c.evictions.Add(1)
	}

	node := sh.lru.PushFront(key)
	sh.entries[key] = &entry[K, V]{value: value, node: node}
}

// GetOrCreate returns the cached value for key, calling create to produce
// and store it on a miss. create runs with the shard lock held, so a
// thundering herd of concurrent misses on the same key only ever runs it
// once — keep it fast.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	sh := c.shardFor(key)

	sh.mu.RLock()
	_, exists := sh.entries[key]
	sh.mu.RUnlock()
	if exists {
		sh.mu.Lock()
		if e, ok := sh.entries[key]; ok {
			sh.lru.MoveToFront(e.node)
			value := e.value
			sh.mu.Unlock()
			c.hits.Add(1)
			return value
		}
		sh.mu.Unlock()
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.entries[key]; ok {
		sh.lru.MoveToFront(e.node)
		c.hits.Add(1)
		return e.value
	}
	c.misses.Add(1)

	value := create()
	for sh.lru.Len() >= c.capacity {
		oldest, ok := sh.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(sh.entries, oldest)
		c.evictions.Add(1)
	}
	node := sh.lru.PushFront(key)
	sh.entries[key] = &entry[K, V]{value: value, node: node}
	return value
}

// Delete removes key, reporting whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	sh := c.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		return false
	}
	sh.lru.Remove(e.node)
	delete(sh.entries, key)
	return true
}

// Clear removes every entry from every shard.
func (c *Cache[K, V]) Clear() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.entries = make(map[K]*entry[K, V])
		sh.lru.Clear()
		sh.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (c *Cache[K, V]) Len() int {
	total := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

// Stats reports the cache's current hit/miss/eviction counters.
func (c *Cache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Len:           c.Len(),
		Capacity:      c.capacity,
		TotalCapacity: c.capacity * DefaultShardCount,
		Hits:          hits,
		Misses:        misses,
		HitRate:       hitRate,
		Evictions:     c.evictions.Load(),
	}
}
