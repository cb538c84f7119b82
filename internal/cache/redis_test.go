package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(s.Close)

	c := NewRedisCache(Configuration{CacheType: TypeRedis, Redis: RedisConfig{Endpoint: s.Addr()}})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c, s
}

func TestRedisCacheStoreRetrieve(t *testing.T) {
	c, _ := newTestRedisCache(t)
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

func TestRedisCacheRetrieveMissingKey(t *testing.T) {
	c, _ := newTestRedisCache(t)
	_, err := c.Retrieve("nope", false)
	if _, ok := err.(ErrKeyNotFound); !ok {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestRedisCacheExpiry(t *testing.T) {
	c, s := newTestRedisCache(t)
	if err := c.Store("key1", []byte("value1"), time.Second); err != nil {
		t.Fatalf("Store: %v", err)
	}
	s.FastForward(2 * time.Second)
	if _, err := c.Retrieve("key1", false); err == nil {
		t.Fatal("expected key to have expired in miniredis")
	}
}

func TestRedisCacheRemove(t *testing.T) {
	c, _ := newTestRedisCache(t)
	c.Store("key1", []byte("value1"), time.Minute)
	c.Remove("key1")
	if _, err := c.Retrieve("key1", false); err == nil {
		t.Fatal("expected removed key to be gone")
	}
}
