package nutrition

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// analysisCache keeps recent analyses keyed by an input fingerprint.
type analysisCache struct {
	mu         sync.RWMutex
	entries    map[uint64]*analysisCacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type analysisCacheEntry struct {
	analysis  FoodAnalysis
	timestamp time.Time
}

func newAnalysisCache(ttl time.Duration, maxEntries int) *analysisCache {
	if ttl <= 0 || maxEntries <= 0 {
		return nil
	}
	return &analysisCache{
		entries:    make(map[uint64]*analysisCacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// fingerprint hashes the analysis kind and its input.
func fingerprint(kind string, data []byte) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(kind)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(data)
	return d.Sum64()
}

func (c *analysisCache) get(key uint64) (*FoodAnalysis, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.timestamp) >= c.ttl {
		return nil, false
	}
	analysis := entry.analysis
	return &analysis, true
}

func (c *analysisCache) put(key uint64, analysis *FoodAnalysis) {
	if c == nil || analysis == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		// Evict the oldest entry
		var oldestKey uint64
		var oldestTime time.Time
		first := true
		for k, v := range c.entries {
			if first || v.timestamp.Before(oldestTime) {
				oldestKey, oldestTime, first = k, v.timestamp, false
			}
		}
		delete(c.entries, oldestKey)
	}
	c.entries[key] = &analysisCacheEntry{analysis: *analysis, timestamp: c.now()}
}

func (c *analysisCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
