package recurrence

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/samber/mo"
)

// CacheEntry is a decoded rule held by the cache
type CacheEntry struct {
	Spec       Spec
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// RuleCache keeps decoded rule specs keyed by rule string.
// Only decoding is cached; occurrences are always computed fresh.
type RuleCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	now             func() time.Time
}

// CacheConfig holds configuration for the rule cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for rule caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewRuleCache creates a new rule cache with the given configuration
func NewRuleCache(config CacheConfig) *RuleCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	cache := &RuleCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	go cache.cleanupLoop()

	return cache
}

func cacheKey(rule string) string {
	sum := sha256.Sum256([]byte(rule))
	return fmt.Sprintf("%x", sum)
}

// Get retrieves a decoded spec if it exists and hasn't expired
func (c *RuleCache) Get(rule string) (Spec, bool) {
	key := cacheKey(rule)
	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return Spec{}, false
	}
	if now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		return Spec{}, false
	}
	entry.AccessedAt = now
	return copySpec(entry.Spec), true
}

// Set stores a decoded spec in the cache
func (c *RuleCache) Set(rule string, spec Spec) {
	now := c.now()
	entry := &CacheEntry{
		Spec:       copySpec(spec),
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[cacheKey(rule)] = entry
	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

func copySpec(s Spec) Spec {
	s.ByWeekday = slices.Clone(s.ByWeekday)
	return s
}

// cleanup removes expired entries, then the least recently used ones while
// over the limit. Caller holds the write lock.
func (c *RuleCache) cleanup() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].AccessedAt.Before(c.entries[keys[j]].AccessedAt)
	})
	for _, key := range keys[:len(c.entries)-c.maxEntries] {
		delete(c.entries, key)
	}
}

func (c *RuleCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. Safe to call twice.
func (c *RuleCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
		c.mutex.Lock()
		c.entries = make(map[string]*CacheEntry)
		c.mutex.Unlock()
	})
}

// Stats returns cache statistics
func (c *RuleCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	expired := 0
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}
	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
	}
}

// CacheStats provides information about cache usage
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}

// CachedCodec decorates a Codec with a RuleCache for Decode.
type CachedCodec struct {
	inner Codec
	cache *RuleCache
}

// NewCachedCodec wraps inner so repeated decodes of one rule hit the cache.
func NewCachedCodec(inner Codec, cache *RuleCache) *CachedCodec {
	return &CachedCodec{inner: inner, cache: cache}
}

func (c *CachedCodec) Encode(spec Spec) (string, error) {
	return c.inner.Encode(spec)
}

func (c *CachedCodec) Decode(rule string) (Spec, error) {
	if spec, ok := c.cache.Get(rule); ok {
		return spec, nil
	}
	spec, err := c.inner.Decode(rule)
	if err != nil {
		return Spec{}, err
	}
	c.cache.Set(rule, spec)
	return spec, nil
}

func (c *CachedCodec) WithUntil(rule string, until time.Time) (string, error) {
	spec, err := c.Decode(rule)
	if err != nil {
		return "", err
	}
	spec.Until = mo.Some(until.UTC())
	return c.inner.Encode(spec)
}
