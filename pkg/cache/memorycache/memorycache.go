package memorycache

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asakaida/skillperm/pkg/cache"
)

// entryOverhead approximates the bytes held by one entry besides its key
const entryOverhead = 100

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
	size      int64
}

// Cache is a size bounded LRU cache with per-entry TTL.
type Cache struct {
	mu sync.Mutex

	items     map[string]*list.Element
	evictList *list.List // front = most recently used

	maxSize     int64
	defaultTTL  time.Duration
	currentSize int64

	now func() time.Time

	metrics *cache.Metrics // nil when metrics are disabled
}

// Config holds configuration for the memory cache.
type Config struct {
	// MaxSizeBytes is the maximum total size of cached items in bytes.
	// When this limit is exceeded, least recently used items are evicted.
	MaxSizeBytes int64

	// DefaultTTL applies to Set calls with a non-positive TTL.
	DefaultTTL time.Duration

	// EnableMetrics enables collection of cache metrics.
	EnableMetrics bool
}

// New creates a new memory cache with the given configuration.
func New(config *Config) (*Cache, error) {
	if config == nil {
		return nil, fmt.Errorf("cache config is required")
	}
	if config.MaxSizeBytes <= 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", config.MaxSizeBytes)
	}
	if config.DefaultTTL <= 0 {
		return nil, fmt.Errorf("default TTL must be positive, got %s", config.DefaultTTL)
	}

	c := &Cache{
		items:      make(map[string]*list.Element),
		evictList:  list.New(),
		maxSize:    config.MaxSizeBytes,
		defaultTTL: config.DefaultTTL,
		now:        time.Now,
	}
	if config.EnableMetrics {
		c.metrics = &cache.Metrics{}
	}

	return c, nil
}

// Get retrieves a value and marks it as recently used.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.countMiss()
		return nil, false
	}

	ent := elem.Value.(*entry)
	if c.now().After(ent.expiresAt) {
		c.removeElement(elem)
		if c.metrics != nil {
			c.metrics.KeysExpired++
		}
		c.countMiss()
		return nil, false
	}

	c.evictList.MoveToFront(elem)
	if c.metrics != nil {
		c.metrics.Hits++
	}
	return ent.value, true
}

// Set stores a value in cache with the specified TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	size := int64(entryOverhead + len(key))
	if size > c.maxSize {
		return fmt.Errorf("entry for key %q (%d bytes) exceeds cache size %d", key, size, c.maxSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry)
		c.currentSize += size - ent.size
		ent.value = value
		ent.expiresAt = expiresAt
		ent.size = size
		c.evictList.MoveToFront(elem)
		c.evict()
		return nil
	}

	elem := c.evictList.PushFront(&entry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
		size:      size,
	})
	c.items[key] = elem
	c.currentSize += size
	if c.metrics != nil {
		c.metrics.KeysAdded++
	}
	c.evict()

	return nil
}

// Delete removes a value from cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// DeletePrefix removes every key beginning with prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(elem)
			removed++
		}
	}
	return removed, nil
}

// Clear removes all entries from cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
	c.currentSize = 0
	return nil
}

// Close releases resources (no-op for memory cache).
func (c *Cache) Close() error {
	return nil
}

// Metrics returns a snapshot of cache statistics.
func (c *Cache) Metrics() *cache.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics == nil {
		return &cache.Metrics{}
	}
	snapshot := *c.metrics
	return &snapshot
}

// ResetMetrics resets cache statistics.
func (c *Cache) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics != nil {
		*c.metrics = cache.Metrics{}
	}
}

// Len returns the current number of items in cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Size returns the current total size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// evict drops least recently used entries until the cache fits. Caller holds mu.
func (c *Cache) evict() {
	for c.currentSize > c.maxSize {
		oldest := c.evictList.Back()
		if oldest == nil {
			return
		}
		c.removeElement(oldest)
		if c.metrics != nil {
			c.metrics.KeysEvicted++
		}
	}
}

// removeElement unlinks an entry. Caller holds mu.
func (c *Cache) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	ent := elem.Value.(*entry)
	delete(c.items, ent.key)
	c.currentSize -= ent.size
}

func (c *Cache) countMiss() {
	if c.metrics != nil {
		c.metrics.Misses++
	}
}
