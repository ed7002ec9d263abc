package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// LRUCache is a size-bounded cache backed by ristretto. Entry cost is the
// serialized result size in bytes, so a handful of large runs can evict many
// small ones.
type LRUCache struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// NewLRU creates a cache bounded by maxSizeMB megabytes and roughly
// maxEntries entries.
func NewLRU(maxSizeMB, maxEntries int64, defaultTTL time.Duration) (*LRUCache, error) {
	// ristretto wants ~10x counters per tracked entry
	counters := maxEntries * 10
	if counters < 1000 {
		counters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     maxSizeMB * 1024 * 1024,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c, defaultTTL: defaultTTL}, nil
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	e, ok := val.(*entry)
	if !ok {
		c.cache.Del(key)
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.cache.Del(key)
		return nil, false
	}
	return e.data, true
}

func (c *LRUCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	e := &entry{data: value, expiresAt: time.Now().Add(ttl)}
	_ = c.cache.Set(key, e, int64(len(value)))
	// Sets are buffered; wait so a Get right after sees the value.
	c.cache.Wait()
}

func (c *LRUCache) Delete(key string) {
	c.cache.Del(key)
}

func (c *LRUCache) Clear() {
	c.cache.Clear()
}

func (c *LRUCache) Stats() Stats {
	m := c.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

func (c *LRUCache) Close() {
	c.cache.Close()
}
