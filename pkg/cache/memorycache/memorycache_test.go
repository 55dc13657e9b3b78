package memorycache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, maxSize int64) *Cache {
	t.Helper()
	c, err := New(&Config{
		MaxSizeBytes:  maxSize,
		DefaultTTL:    time.Minute,
		EnableMetrics: true,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config", config: nil},
		{name: "zero size", config: &Config{MaxSizeBytes: 0, DefaultTTL: time.Minute}},
		{name: "zero ttl", config: &Config{MaxSizeBytes: 1024}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config); err == nil {
				t.Error("expected error for invalid config")
			}
		})
	}
}

func TestCache_SetAndGet(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	if err := cache.Set(ctx, "key1", "value1", time.Minute); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	value, found := cache.Get(ctx, "key1")
	if !found {
		t.Error("expected to find key1")
	}
	if value != "value1" {
		t.Errorf("expected value1, got %v", value)
	}

	if _, found = cache.Get(ctx, "nonexistent"); found {
		t.Error("expected not to find nonexistent key")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "short", "v", 50*time.Millisecond); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}
	if err := cache.Set(ctx, "default", "v", 0); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	if _, found := cache.Get(ctx, "short"); !found {
		t.Error("expected to find short before expiration")
	}

	now = now.Add(time.Second)

	if _, found := cache.Get(ctx, "short"); found {
		t.Error("expected not to find short after expiration")
	}
	if _, found := cache.Get(ctx, "default"); !found {
		t.Error("expected default TTL entry to survive one second")
	}
	if got := cache.Metrics().KeysExpired; got != 1 {
		t.Errorf("expected 1 expired key, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	if _, found := cache.Get(ctx, "default"); found {
		t.Error("expected default TTL entry to expire after a minute")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	// Room for two single character keys
	cache := newTestCache(t, 2*(entryOverhead+1)+10)
	ctx := context.Background()

	cache.Set(ctx, "a", 1, time.Minute)
	cache.Set(ctx, "b", 2, time.Minute)

	// Touch "a" so "b" becomes least recently used
	if _, found := cache.Get(ctx, "a"); !found {
		t.Fatal("expected to find a")
	}

	cache.Set(ctx, "c", 3, time.Minute)

	if cache.Len() != 2 {
		t.Errorf("expected 2 items after eviction, got %d", cache.Len())
	}
	if _, found := cache.Get(ctx, "b"); found {
		t.Error("expected least recently used item b to be evicted")
	}
	if _, found := cache.Get(ctx, "a"); !found {
		t.Error("expected recently used item a to survive")
	}
	if _, found := cache.Get(ctx, "c"); !found {
		t.Error("expected newest item c to be present")
	}
	if got := cache.Metrics().KeysEvicted; got != 1 {
		t.Errorf("expected 1 eviction, got %d", got)
	}
}

func TestCache_SetOversizedEntry(t *testing.T) {
	cache := newTestCache(t, entryOverhead+4)
	if err := cache.Set(context.Background(), "too-long-key", 1, time.Minute); err == nil {
		t.Error("expected error for entry larger than the cache")
	}
}

func TestCache_Delete(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	cache.Set(ctx, "key1", "value1", time.Minute)
	if err := cache.Delete(ctx, "key1"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, found := cache.Get(ctx, "key1"); found {
		t.Error("expected not to find key1 after deletion")
	}
	if cache.Size() != 0 {
		t.Errorf("expected size 0 after deletion, got %d", cache.Size())
	}

	if err := cache.Delete(ctx, "nonexistent"); err != nil {
		t.Fatalf("delete of non-existent key should not error: %v", err)
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	cache.Set(ctx, "grant:m1:s1", 1, time.Minute)
	cache.Set(ctx, "grant:m1:s2", 2, time.Minute)
	cache.Set(ctx, "grant:m2:s1", 3, time.Minute)

	removed, err := cache.DeletePrefix(ctx, "grant:m1:")
	if err != nil {
		t.Fatalf("failed to delete prefix: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 item left, got %d", cache.Len())
	}
	if _, found := cache.Get(ctx, "grant:m2:s1"); !found {
		t.Error("expected unrelated key to remain")
	}
}

func TestCache_Clear(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	cache.Set(ctx, "key1", "value1", time.Minute)
	cache.Set(ctx, "key2", "value2", time.Minute)
	cache.Set(ctx, "key3", "value3", time.Minute)

	if cache.Len() != 3 {
		t.Errorf("expected 3 items, got %d", cache.Len())
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	if cache.Len() != 0 || cache.Size() != 0 {
		t.Errorf("expected empty cache after clear, got %d items / %d bytes", cache.Len(), cache.Size())
	}
}

func TestCache_Metrics(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	metrics := cache.Metrics()
	if metrics.Hits != 0 || metrics.Misses != 0 {
		t.Errorf("expected 0 hits and misses initially, got %d hits and %d misses", metrics.Hits, metrics.Misses)
	}

	cache.Set(ctx, "key1", "value1", time.Minute)
	cache.Get(ctx, "key1")
	cache.Get(ctx, "nonexistent")

	metrics = cache.Metrics()
	if metrics.Hits != 1 || metrics.Misses != 1 || metrics.KeysAdded != 1 {
		t.Errorf("unexpected metrics: %+v", metrics)
	}
	if metrics.HitRate() != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", metrics.HitRate())
	}

	cache.ResetMetrics()
	if got := cache.Metrics(); got.Hits != 0 || got.Misses != 0 {
		t.Errorf("expected metrics to reset, got %+v", got)
	}
}

func TestCache_MetricsDisabled(t *testing.T) {
	cache, err := New(&Config{MaxSizeBytes: 1024, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	ctx := context.Background()

	cache.Set(ctx, "k", 1, time.Minute)
	cache.Get(ctx, "k")

	if got := cache.Metrics(); got.Hits != 0 || got.KeysAdded != 0 {
		t.Errorf("expected zero metrics when disabled, got %+v", got)
	}
}

func TestCache_UpdateExisting(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	cache.Set(ctx, "key1", "value1", time.Minute)
	cache.Set(ctx, "key1", "value2", time.Minute)

	value, found := cache.Get(ctx, "key1")
	if !found {
		t.Error("expected to find key1")
	}
	if value != "value2" {
		t.Errorf("expected value2, got %v", value)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 item, got %d", cache.Len())
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		key := string(rune('a' + i))
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set(ctx, key, j, time.Minute)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Get(ctx, key)
				cache.DeletePrefix(ctx, key)
			}
		}()
	}
	wg.Wait()

	if cache.Len() > 10 {
		t.Errorf("expected at most 10 keys, got %d", cache.Len())
	}
}
