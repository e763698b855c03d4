package quality

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jschaf/bibmgr/entry"
)

// CacheStats reports hit-rate information for the quality cache.
type CacheStats struct {
	Hits   int
	Misses int
}

// HitRate returns hits/(hits+misses), or 0 if the cache has never been
// consulted.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache memoizes a per-entry EntryReport keyed by a content hash of the
// entry (key, type and every field AllFieldNames lists; the audit
// timestamps and FilePath are not hashed), bounded to a maximum
// entry count by LRU eviction.
type Cache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, EntryReport]
	stats CacheStats
}

// NewCache builds a Cache holding at most size entry reports.
func NewCache(size int) (*Cache, error) {
	l, err := lru.New[string, EntryReport](size)
	if err != nil {
		return nil, fmt.Errorf("quality: new cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// ContentHash computes a stable hash of e's bibliographic content, omitting
// CreatedAt/ModifiedAt so cache entries survive audit-timestamp-only
// changes.
func ContentHash(e entry.Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", e.Key, e.Type)
	names := e.AllFieldNames()
	sort.Strings(names)
	for _, n := range names {
		v, _ := e.FieldValue(entry.Field(n))
		fmt.Fprintf(h, "%s=%s\x00", n, v)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached EntryReport for hash, if present, recording a
// hit or miss.
func (c *Cache) Get(hash string) (EntryReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.lru.Get(hash)
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return r, ok
}

// Put stores rpt under hash, evicting the least-recently-used entry if the
// cache is full.
func (c *Cache) Put(hash string, rpt EntryReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(hash, rpt)
}

// Invalidate drops hash from the cache, if present.
func (c *Cache) Invalidate(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(hash)
}

// Stats returns a snapshot of the cache's hit-rate counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
