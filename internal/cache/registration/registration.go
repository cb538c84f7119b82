// Package registration selects and constructs the configured
// cache.Cache backend.
package registration

import (
	"fmt"

	"github.com/corehttp/txcore/internal/cache"
	"github.com/corehttp/txcore/internal/log"
)

// NewCache constructs and connects the cache.Cache backend named by
// cfg.CacheType.
func NewCache(cfg cache.Configuration) (cache.Cache, error) {
	var c cache.Cache
	switch cfg.CacheType {
	case cache.TypeRedis:
		c = cache.NewRedisCache(cfg)
	case cache.TypeBBolt:
		c = cache.NewBBoltCache(cfg)
	case cache.TypeBadger:
		c = cache.NewBadgerCache(cfg)
	case cache.TypeMemory, "":
		c = cache.NewMemoryCache(cfg)
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.CacheType)
	}
	log.Info("connecting cache", log.Pairs{"type": cfg.CacheType})
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}
