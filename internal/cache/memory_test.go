package cache

import (
	"testing"
	"time"
)

func TestMemoryCacheStoreRetrieve(t *testing.T) {
	c := NewMemoryCache(Configuration{CacheType: TypeMemory})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
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

func TestMemoryCacheRetrieveMissingKey(t *testing.T) {
	c := NewMemoryCache(Configuration{})
	_, err := c.Retrieve("nope", false)
	if _, ok := err.(ErrKeyNotFound); !ok {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(Configuration{})
	base := time.Unix(1000, 0)
	c.now = func() time.Time { return base }
	if err := c.Store("key1", []byte("value1"), time.Second); err != nil {
		t.Fatalf("Store: %v", err)
	}

	c.now = func() time.Time { return base.Add(2 * time.Second) }
	if _, err := c.Retrieve("key1", false); err == nil {
		t.Fatal("expected expiry error")
	}
	got, err := c.Retrieve("key1", true)
	if err != nil {
		t.Fatalf("Retrieve with allowExpired: %v", err)
	}
	if string(got) != "value1" {
		t.Fatalf("got %q", got)
	}
}

func TestMemoryCacheRemove(t *testing.T) {
	c := NewMemoryCache(Configuration{})
	c.Store("key1", []byte("value1"), time.Minute)
	c.Remove("key1")
	if _, err := c.Retrieve("key1", true); err == nil {
		t.Fatal("expected removed key to be gone")
	}
}
