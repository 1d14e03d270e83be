package registry

import (
	"container/list"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a statement fingerprint used as a plan-cache key. Mirrors
// nornicdb's pkg/storage.NewCompositeKey (SHA-256 of composite index
// values): same "hash a canonical byte representation" idiom, but using
// blake2b — carried over from nornicdb's golang.org/x/crypto dependency,
// whose only other use (password hashing in pkg/auth/pkg/encryption) is out
// of scope here (SPEC_FULL.md §B) — for a faster, non-cryptographic-purpose
// hash well suited to a hot cache-lookup path.
type Fingerprint [32]byte

// FingerprintOf hashes a canonical string representation of a statement
// (produced by the Analyzer from the statement AST) into a Fingerprint.
func FingerprintOf(canonical string) Fingerprint {
	return blake2b.Sum256([]byte(canonical))
}

type planCacheKey struct {
	fp         Fingerprint
	generation uint64
}

// PlanCache is an LRU cache from (statement fingerprint, registry
// generation) to a compiled plan (opaque to this package — stored as
// interface{} since pkg/registry must not import pkg/match, its only
// consumer, without creating an import cycle). Mirrors nornicdb's
// pkg/cypher.QueryCache (LRU with hit/miss stats); the TTL half of that
// design is dropped because this cache's invalidation signal is the
// Registry's generation counter, not wall-clock age (SPEC_FULL.md §D.1).
type PlanCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[planCacheKey]*list.Element

	hits   uint64
	misses uint64
}

type planCacheEntry struct {
	key  planCacheKey
	plan interface{}
}

// NewPlanCache constructs a cache holding at most capacity plans.
func NewPlanCache(capacity int) *PlanCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &PlanCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[planCacheKey]*list.Element),
	}
}

// Get looks up a cached plan by fingerprint and generation.
func (c *PlanCache) Get(fp Fingerprint, generation uint64) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := planCacheKey{fp: fp, generation: generation}
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*planCacheEntry).plan, true
}

// Put inserts or refreshes a cached plan, evicting the least-recently-used
// entry if the cache is full.
func (c *PlanCache) Put(fp Fingerprint, generation uint64, plan interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := planCacheKey{fp: fp, generation: generation}
	if el, ok := c.items[key]; ok {
		el.Value.(*planCacheEntry).plan = plan
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&planCacheEntry{key: key, plan: plan})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*planCacheEntry).key)
		}
	}
}

// Stats returns (hits, misses) for diagnostics.
func (c *PlanCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// String renders the cache's current size and hit rate.
func (c *PlanCache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("PlanCache(size=%d/%d hits=%d misses=%d)", c.ll.Len(), c.capacity, c.hits, c.misses)
}
