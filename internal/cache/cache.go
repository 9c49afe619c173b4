package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of redis.Client the cache needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// envelope wraps a cached value with the bookkeeping needed for TTL checks.
// Expiry is computed from wall-clock age rather than delegated to Redis so
// an expired value is still retrievable for stale-while-revalidate reads.
type envelope struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
	TTL      time.Duration   `json:"ttl_ns"`
}

// Cache is a TTL cache over an in-memory map, mirrored best-effort to Redis
// so a restart starts from the last persisted state. Values are serialized
// JSON. There is no eviction beyond TTL expiry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]envelope
	redis   RedisClient
	now     func() time.Time
}

// New creates a cache. redisClient may be nil, in which case the cache is
// memory-only.
func New(redisClient RedisClient) *Cache {
	return &Cache{
		entries: make(map[string]envelope),
		redis:   redisClient,
		now:     time.Now,
	}
}

// Set stores value under key with the given TTL. The in-memory entry always
// succeeds; a Redis write failure is logged and otherwise ignored since the
// mirror is best-effort.
func (c *Cache) Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) {
	env := envelope{Value: value, StoredAt: c.now().UTC(), TTL: ttl}

	c.mu.Lock()
	c.entries[key] = env
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("cache marshal error for %s: %v", key, err)
		return
	}
	if err := c.redis.Set(ctx, key, data, 0).Err(); err != nil {
		log.Printf("cache persist error for %s: %v", key, err)
	}
}

// Get returns the entry under key. ok reports whether any entry exists;
// fresh reports whether its age is still within the TTL it was stored with.
// A hit in the strict sense is ok && fresh; callers doing
// stale-while-revalidate may still serve a stale value.
func (c *Cache) Get(ctx context.Context, key string) (value json.RawMessage, fresh bool, ok bool) {
	c.mu.RLock()
	env, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		env, found = c.loadFromRedis(ctx, key)
		if !found {
			return nil, false, false
		}
	}

	age := c.now().UTC().Sub(env.StoredAt)
	return env.Value, age <= env.TTL, true
}

// Delete removes key from memory and the Redis mirror.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.redis != nil {
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			log.Printf("cache delete error for %s: %v", key, err)
		}
	}
}

func (c *Cache) loadFromRedis(ctx context.Context, key string) (envelope, bool) {
	if c.redis == nil {
		return envelope{}, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return envelope{}, false
	}
	if err != nil {
		log.Printf("cache read error for %s: %v", key, err)
		return envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("cache decode error for %s: %v", key, err)
		return envelope{}, false
	}

	c.mu.Lock()
	c.entries[key] = env
	c.mu.Unlock()
	return env, true
}
