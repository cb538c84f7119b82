package cache

import (
	"time"

	"github.com/go-redis/redis"
)

// RedisCache is a go-redis-backed Cache.
type RedisCache struct {
	cfg    Configuration
	client *redis.Client
}

// NewRedisCache returns a RedisCache for cfg. Connect must be called
// before use.
func NewRedisCache(cfg Configuration) *RedisCache {
	return &RedisCache{cfg: cfg}
}

func (c *RedisCache) Configuration() Configuration { return c.cfg }

func (c *RedisCache) Connect() error {
	c.client = redis.NewClient(&redis.Options{
		Addr:     c.cfg.Redis.Endpoint,
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	})
	return c.client.Ping().Err()
}

func (c *RedisCache) Store(key string, data []byte, ttl time.Duration) error {
	return c.client.Set(key, data, ttl).Err()
}

func (c *RedisCache) Retrieve(key string, allowExpired bool) ([]byte, error) {
	data, err := c.client.Get(key).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound{Key: key}
	}
	return data, err
}

func (c *RedisCache) Remove(key string) {
	c.client.Del(key)
}

func (c *RedisCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
