package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestBBoltCache(t *testing.T) *BBoltCache {
	t.Helper()
	dir := t.TempDir()
	c := NewBBoltCache(Configuration{
		CacheType: TypeBBolt,
		BBolt:     BBoltConfig{Filename: filepath.Join(dir, "txcore.db"), Bucket: "txcore"},
	})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBBoltCacheStoreRetrieve(t *testing.T) {
	c := newTestBBoltCache(t)
	if err := c.Store("key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := c.Retrieve("key1", false)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if string(got) != "value1" {
		t.Fatalf("got %q", got)
	}
}

func TestBBoltCacheRetrieveMissingKey(t *testing.T) {
	c := newTestBBoltCache(t)
	_, err := c.Retrieve("nope", false)
	if _, ok := err.(ErrKeyNotFound); !ok {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestBBoltCacheExpiry(t *testing.T) {
	c := newTestBBoltCache(t)
	if err := c.Store("key1", []byte("value1"), -time.Second); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := c.Retrieve("key1", false); err == nil {
		t.Fatal("expected expiry error for already-expired ttl")
	}
	got, err := c.Retrieve("key1", true)
	if err != nil {
		t.Fatalf("Retrieve with allowExpired: %v", err)
	}
	if string(got) != "value1" {
		t.Fatalf("got %q", got)
	}
}

func TestBBoltCacheRemove(t *testing.T) {
	c := newTestBBoltCache(t)
	c.Store("key1", []byte("value1"), time.Minute)
	c.Remove("key1")
	if _, err := c.Retrieve("key1", true); err == nil {
		t.Fatal("expected removed key to be gone")
	}
}
