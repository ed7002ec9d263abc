// Package cache provides a byte-oriented result cache with TTL semantics.
// Computation results are content-addressed by a digest of the input points
// and parameters, so resubmitting an identical dataset skips the traversal.
package cache

import "time"

// Cache stores serialized values under string keys with per-entry TTL.
type Cache interface {
	// Get returns the value for key and true when present and unexpired.
	Get(key string) ([]byte, bool)

	// Set stores value under key. A zero ttl uses the cache default.
	Set(key string, value []byte, ttl time.Duration)

	// Delete removes key.
	Delete(key string)

	// Clear drops every entry.
	Clear()

	// Stats reports hit and eviction counters.
	Stats() Stats
}

// Stats are cumulative counters since the cache was created.
type Stats struct {
	Hits      uint64
	Misses    uint64
	KeysAdded uint64
	Evictions uint64
	Size      int64 // approximate bytes held
	Items     int64 // approximate entry count
}
