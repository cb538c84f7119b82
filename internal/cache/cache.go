// Package cache is the pluggable cache-storage layer underneath
// internal/transact's CachedObject: a small backend interface, the
// msgp+snappy wire shape engines.QueryCache/WriteCache move through it,
// and memory/redis/bbolt/badger implementations.
package cache

import "time"

// Type names a cache backend.
type Type string

const (
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
	TypeBBolt  Type = "bbolt"
	TypeBadger Type = "badger"
)

// Configuration is the subset of per-backend settings a Cache
// implementation consults.
type Configuration struct {
	CacheType   Type
	Compression bool

	Redis  RedisConfig
	BBolt  BBoltConfig
	Badger BadgerConfig
}

// RedisConfig configures the go-redis backend.
type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

// BBoltConfig configures the coreos/bbolt file backend.
type BBoltConfig struct {
	Filename string
	Bucket   string
}

// BadgerConfig configures the dgraph-io/badger directory backend.
type BadgerConfig struct {
	Directory string
}

// Cache is the storage interface every backend satisfies. Keys are
// opaque strings (the transaction's cache key); values are
// the bytes WriteCache produced.
type Cache interface {
	Configuration() Configuration
	Connect() error
	Store(key string, data []byte, ttl time.Duration) error
	Retrieve(key string, allowExpired bool) ([]byte, error)
	Remove(key string)
	Close() error
}

// ErrKeyNotFound is returned by Retrieve for a missing or expired key.
type ErrKeyNotFound struct{ Key string }

func (e ErrKeyNotFound) Error() string { return "cache: key not found: " + e.Key }
