package registration

import (
	"testing"

	"github.com/corehttp/txcore/internal/cache"
)

func TestNewCacheDefaultsToMemory(t *testing.T) {
	c, err := NewCache(cache.Configuration{})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if _, ok := c.(*cache.MemoryCache); !ok {
		t.Fatalf("expected *cache.MemoryCache, got %T", c)
	}
}

func TestNewCacheUnknownTypeErrors(t *testing.T) {
	_, err := NewCache(cache.Configuration{CacheType: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown cache type")
	}
}

func TestNewCacheBBolt(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(cache.Configuration{
		CacheType: cache.TypeBBolt,
		BBolt:     cache.BBoltConfig{Filename: dir + "/txcore.db", Bucket: "txcore"},
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*cache.BBoltCache); !ok {
		t.Fatalf("expected *cache.BBoltCache, got %T", c)
	}
}
