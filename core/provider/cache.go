package provider

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"apparel-pricing/core/pricing"
	"apparel-pricing/internal/logging"
	"apparel-pricing/internal/metrics"
)

// CachePolicy defines cache behavior
type CachePolicy struct {
	// TTL for entries; expired entries are refetched, never served
	TTL time.Duration

	// MaxEntries bounds the cache; the oldest entry is evicted first
	MaxEntries int

	// SchemaVersion is stamped on entries; changing it invalidates them
	SchemaVersion string
}

// DefaultCachePolicy returns the default policy
func DefaultCachePolicy() *CachePolicy {
	return &CachePolicy{
		TTL:           5 * time.Minute,
		MaxEntries:    1000,
		SchemaVersion: "1",
	}
}

// CacheEntry is a cached pricing value with governance metadata
type CacheEntry struct {
	Key           string
	Value         interface{}
	SchemaVersion string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	AccessCount   int
	LastAccessed  time.Time
}

// IsExpired checks if the entry has expired
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache is a TTL cache in front of a Source. Failed fetches are never cached.
type Cache struct {
	source  Source
	policy  CachePolicy
	metrics *metrics.Metrics
	now     func() time.Time

	entries map[string]*CacheEntry
	mu      sync.Mutex
}

// NewCache wraps a source
func NewCache(source Source, policy *CachePolicy, m *metrics.Metrics) *Cache {
	if policy == nil {
		policy = DefaultCachePolicy()
	}
	return &Cache{
		source:  source,
		policy:  *policy,
		metrics: m,
		now:     time.Now,
		entries: make(map[string]*CacheEntry),
	}
}

// Name returns the wrapped source name
func (c *Cache) Name() string {
	return c.source.Name()
}

// FetchTiers returns cached tiers or fetches them from the source
func (c *Cache) FetchTiers(ctx context.Context, productLine string) (pricing.TierTable, error) {
	v, err := c.fetch("tiers:"+productLine, func() (interface{}, error) {
		return c.source.FetchTiers(ctx, productLine)
	})
	if err != nil {
		return nil, err
	}
	return v.(pricing.TierTable), nil
}

// FetchProfile returns a cached product line or fetches it from the source
func (c *Cache) FetchProfile(ctx context.Context, key ProfileKey) (*pricing.ProductLine, error) {
	v, err := c.fetch("profile:"+key.String(), func() (interface{}, error) {
		return c.source.FetchProfile(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*pricing.ProductLine), nil
}

func (c *Cache) fetch(key string, load func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	// fetch outcomes are recorded by the source that does the I/O
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.Put(key, v)
	return v, nil
}

// SetSchemaVersion changes the schema version; existing entries become stale
func (c *Cache) SetSchemaVersion(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy.SchemaVersion = version
}

// Get retrieves an entry if it is neither expired nor stale
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.metrics.ObserveCache("miss")
		return nil, false
	}

	now := c.now()
	if entry.IsExpired(now) {
		delete(c.entries, key)
		c.metrics.ObserveCache("expired")
		return nil, false
	}
	if entry.SchemaVersion != c.policy.SchemaVersion {
		delete(c.entries, key)
		c.metrics.ObserveCache("stale")
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessed = now
	c.metrics.ObserveCache("hit")
	return entry.Value, true
}

// Put stores an entry
func (c *Cache) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.policy.MaxEntries > 0 && len(c.entries) >= c.policy.MaxEntries {
		if _, replacing := c.entries[key]; !replacing {
			c.evictOldest()
		}
	}

	now := c.now()
	c.entries[key] = &CacheEntry{
		Key:           key,
		Value:         value,
		SchemaVersion: c.policy.SchemaVersion,
		CreatedAt:     now,
		ExpiresAt:     now.Add(c.policy.TTL),
		LastAccessed:  now,
	}
}

func (c *Cache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.CreatedAt.Before(oldest) {
			oldestKey, oldest = key, entry.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		logging.Debug("provider cache evicted entry", zap.String("key", oldestKey))
	}
}

// Invalidate removes an entry
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateExpired removes all expired entries
func (c *Cache) InvalidateExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, entry := range c.entries {
		if entry.IsExpired(now) {
			delete(c.entries, key)
			count++
		}
	}
	return count
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := CacheStats{TotalEntries: len(c.entries)}
	for _, entry := range c.entries {
		if entry.IsExpired(now) {
			stats.ExpiredEntries++
		}
		if entry.SchemaVersion != c.policy.SchemaVersion {
			stats.StaleEntries++
		}
	}
	return stats
}

// CacheStats contains cache statistics
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	StaleEntries   int
}
