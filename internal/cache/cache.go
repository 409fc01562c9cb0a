// Package cache implements a sharded, reference-counted LRU cache,
// ported from the original's util/cache.cc: a fixed-capacity shard keeps
// two lists (entries in active use, and entries idle in LRU order) plus
// an open-chained hashtable keyed by a caller-supplied hash, and a
// 16-way sharded wrapper routes by the hash's high bits to reduce lock
// contention.
package cache

import (
	"sync"

	"github.com/AmrMurad1/ldbtable/internal/lsmhash"
	"github.com/AmrMurad1/ldbtable/metrics"
)

// Deleter is invoked exactly once, when an entry's last reference is
// released (whether by Release, Erase, or Insert evicting a duplicate
// key), with the key and value it was inserted with.
type Deleter func(key string, value any)

// Handle is an opaque reference returned by Insert and Lookup; callers
// must call Release exactly once per Handle they receive.
type Handle struct {
	entry *entry
}

type entry struct {
	key    string
	value  any
	charge int
	hash   uint32
	deleter Deleter

	refs    int
	inCache bool

	next, prev *entry // LRU/in-use list links
	nextHash   *entry // hashtable chain link
}

// shard is one partition of a Cache: its own mutex, lists, and
// hashtable, exactly mirroring the original's per-shard LRUCache.
type shard struct {
	mu sync.Mutex

	capacity int
	usage    int

	lru    entry // dummy head; lru.prev = newest, lru.next = oldest
	inUse  entry // dummy head; order doesn't matter

	table map[uint32]*entry // bucket chains, keyed by hash

	hits, misses int64
}

func newShard(capacity int) *shard {
	s := &shard{capacity: capacity, table: make(map[uint32]*entry)}
	s.lru.next, s.lru.prev = &s.lru, &s.lru
	s.inUse.next, s.inUse.prev = &s.inUse, &s.inUse
	return s
}

func listRemove(e *entry) {
	e.next.prev = e.prev
	e.prev.next = e.next
}

func listAppend(list, e *entry) {
	e.next = list
	e.prev = list.prev
	e.prev.next = e
	e.next.prev = e
}

func (s *shard) ref(e *entry) {
	if e.refs == 1 && e.inCache {
		listRemove(e)
		listAppend(&s.inUse, e)
	}
	e.refs++
}

func (s *shard) unref(e *entry) {
	e.refs--
	switch {
	case e.refs == 0:
		if e.deleter != nil {
			e.deleter(e.key, e.value)
		}
	case e.inCache && e.refs == 1:
		listRemove(e)
		listAppend(&s.lru, e)
	}
}

// findInTable walks the bucket chain for hash looking for key, returning
// the matching entry, or nil if there is none.
func (s *shard) findInTable(key string, hash uint32) *entry {
	for e := s.table[hash]; e != nil; e = e.nextHash {
		if e.hash == hash && e.key == key {
			return e
		}
	}
	return nil
}

func (s *shard) removeFromTable(key string, hash uint32) *entry {
	var prev *entry
	for e := s.table[hash]; e != nil; e = e.nextHash {
		if e.hash == hash && e.key == key {
			if prev == nil {
				if e.nextHash == nil {
					delete(s.table, hash)
				} else {
					s.table[hash] = e.nextHash
				}
			} else {
				prev.nextHash = e.nextHash
			}
			return e
		}
		prev = e
	}
	return nil
}

// insertIntoTable adds e to its bucket chain, first unlinking any
// existing entry with the same key (which is returned so the caller can
// finish evicting it — the original's FinishErase(table_.Insert(e))).
func (s *shard) insertIntoTable(e *entry) *entry {
	old := s.removeFromTable(e.key, e.hash)
	e.nextHash = s.table[e.hash]
	s.table[e.hash] = e
	return old
}

func (s *shard) lookup(key string, hash uint32) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.findInTable(key, hash)
	if e == nil {
		s.misses++
		return nil
	}
	s.hits++
	s.ref(e)
	return &Handle{entry: e}
}

func (s *shard) insert(key string, hash uint32, value any, charge int, deleter Deleter) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{key: key, hash: hash, value: value, charge: charge, deleter: deleter, refs: 1}

	if s.capacity > 0 {
		e.refs++
		e.inCache = true
		listAppend(&s.inUse, e)
		s.usage += charge
		if old := s.insertIntoTable(e); old != nil {
			s.finishErase(old)
		}
	}

	for s.usage > s.capacity && s.lru.next != &s.lru {
		oldest := s.lru.next
		removed := s.removeFromTable(oldest.key, oldest.hash)
		s.finishErase(removed)
	}

	return &Handle{entry: e}
}

// finishErase removes e (already unlinked from the hashtable, or nil) from
// its list and unrefs it.
func (s *shard) finishErase(e *entry) bool {
	if e == nil {
		return false
	}
	listRemove(e)
	e.inCache = false
	s.usage -= e.charge
	s.unref(e)
	return true
}

func (s *shard) release(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unref(h.entry)
}

func (s *shard) erase(key string, hash uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishErase(s.removeFromTable(key, hash))
}

func (s *shard) totalCharge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

const numShardBits = 4
const numShards = 1 << numShardBits

// Cache is a fixed-total-capacity, sharded, reference-counted cache safe
// for concurrent use. Capacity 0 disables caching entirely: Insert still
// returns a usable Handle but the entry is evicted immediately on
// Release, matching the original's documented pass-through mode.
type Cache struct {
	shards [numShards]*shard
	m      *metrics.CacheMetrics
	name   string
}

// New returns a Cache with the given total capacity, split evenly across
// 16 shards (per-shard capacity is capacity/16, rounded up for the last
// shard so the sum is never less than capacity).
func New(name string, capacity int, m *metrics.CacheMetrics) *Cache {
	c := &Cache{m: m, name: name}
	perShard := capacity / numShards
	for i := range c.shards {
		cap := perShard
		if i == numShards-1 {
			cap = capacity - perShard*(numShards-1)
		}
		c.shards[i] = newShard(cap)
	}
	return c
}

func (c *Cache) shardFor(hash uint32) *shard {
	return c.shards[hash>>(32-numShardBits)]
}

// HashKey computes the hash used to route and look up key; exposed so
// callers needing a stable hash across Insert/Lookup/Erase calls
// (e.g. the table cache) can precompute it once.
func HashKey(key string) uint32 {
	return lsmhash.Hash([]byte(key), 0)
}

// Insert adds key/value to the cache with the given charge against its
// capacity, returning a Handle the caller must Release. deleter, if
// non-nil, runs exactly once when the entry's last reference goes away.
func (c *Cache) Insert(key string, value any, charge int, deleter Deleter) *Handle {
	hash := HashKey(key)
	h := c.shardFor(hash).insert(key, hash, value, charge, deleter)
	if c.m != nil {
		c.m.Usage.WithLabelValues(c.name).Set(float64(c.TotalCharge()))
	}
	return h
}

// Lookup returns a Handle for key, or nil if it is not present.
func (c *Cache) Lookup(key string) *Handle {
	hash := HashKey(key)
	h := c.shardFor(hash).lookup(key, hash)
	if c.m != nil {
		if h != nil {
			c.m.Hits.WithLabelValues(c.name).Inc()
		} else {
			c.m.Misses.WithLabelValues(c.name).Inc()
		}
	}
	return h
}

// Value returns the value a Handle refers to.
func (h *Handle) Value() any { return h.entry.value }

// Release relinquishes a Handle obtained from Insert or Lookup.
func (c *Cache) Release(h *Handle) {
	c.shardFor(h.entry.hash).release(h)
}

// Erase removes key from the cache, if present. Existing Handles remain
// valid until released.
func (c *Cache) Erase(key string) {
	hash := HashKey(key)
	c.shardFor(hash).erase(key, hash)
}

// TotalCharge returns the sum of all shards' current usage.
func (c *Cache) TotalCharge() int {
	total := 0
	for _, s := range c.shards {
		total += s.totalCharge()
	}
	return total
}

// NewID allocates a new, process-unique 64-bit ID space, paralleling the
// original's Cache::NewId — useful for per-session cache key prefixes to
// avoid collisions when a file name is reused at a different generation.
type idGenerator struct {
	mu   sync.Mutex
	next uint64
}

var globalIDGenerator idGenerator

// NewID returns a fresh, process-unique identifier.
func NewID() uint64 {
	globalIDGenerator.mu.Lock()
	defer globalIDGenerator.mu.Unlock()
	globalIDGenerator.next++
	return globalIDGenerator.next
}
