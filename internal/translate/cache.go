package translate

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RulesCache memoizes successful raw translator output per prompt, so
// repeated identical segment descriptions skip the model round trip.
type RulesCache interface {
	Get(ctx context.Context, prompt string) (string, bool)
	Set(ctx context.Context, prompt, raw string)
}

// MemoryCache is the in-process fallback when Redis is disabled.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	raw     string
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, prompt string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[prompt]
	if !ok {
		return "", false
	}
	if c.now().After(e.expires) {
		delete(c.entries, prompt)
		return "", false
	}
	return e.raw, true
}

func (c *MemoryCache) Set(_ context.Context, prompt, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[prompt] = memoryEntry{raw: raw, expires: c.now().Add(c.ttl)}
}

const redisKeyPrefix = "nlseg:"

// RedisCache shares translation results across instances. Cache errors are
// logged and treated as misses; the translator call is the fallback.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, prompt string) (string, bool) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+prompt).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Warn().Err(err).Msg("translation cache get failed")
		return "", false
	}
	return raw, true
}

func (c *RedisCache) Set(ctx context.Context, prompt, raw string) {
	if err := c.rdb.Set(ctx, redisKeyPrefix+prompt, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("translation cache set failed")
	}
}
