package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	data   map[string][]byte
	setErr error
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		bytes, _ := json.Marshal(v)
		f.data[key] = bytes
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func newClockedCache(redisClient RedisClient, start time.Time) (*Cache, *time.Time) {
	c := New(redisClient)
	now := start
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCacheHitWithinTTL(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	c, clock := newClockedCache(nil, start)

	c.Set(context.Background(), "rates:current", json.RawMessage(`{"x":1}`), time.Minute)

	*clock = start.Add(59 * time.Second)
	value, fresh, ok := c.Get(context.Background(), "rates:current")
	if !ok || !fresh {
		t.Fatalf("expected fresh hit, got ok=%v fresh=%v", ok, fresh)
	}
	if string(value) != `{"x":1}` {
		t.Fatalf("unexpected value: %s", value)
	}
}

func TestCacheMissAfterTTL(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	c, clock := newClockedCache(nil, start)

	c.Set(context.Background(), "rates:current", json.RawMessage(`{"x":1}`), time.Minute)

	*clock = start.Add(61 * time.Second)
	value, fresh, ok := c.Get(context.Background(), "rates:current")
	if !ok {
		t.Fatal("expired entries must still be retrievable for revalidation")
	}
	if fresh {
		t.Fatal("entry older than its TTL must not report fresh")
	}
	if string(value) != `{"x":1}` {
		t.Fatalf("stale read should return the stored value, got %s", value)
	}
}

func TestCacheMissWhenAbsent(t *testing.T) {
	t.Parallel()

	c := New(nil)
	if _, _, ok := c.Get(context.Background(), "nope"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestCacheRepopulatesFromRedis(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	shared := newFakeRedis()

	first, _ := newClockedCache(shared, start)
	first.Set(context.Background(), "rates:current", json.RawMessage(`{"x":2}`), time.Hour)

	// Fresh process: empty memory, same Redis.
	second, _ := newClockedCache(shared, start.Add(time.Second))
	value, fresh, ok := second.Get(context.Background(), "rates:current")
	if !ok || !fresh {
		t.Fatalf("expected hit from redis mirror, got ok=%v fresh=%v", ok, fresh)
	}
	if string(value) != `{"x":2}` {
		t.Fatalf("unexpected value: %s", value)
	}
}

func TestCacheSurvivesRedisWriteFailure(t *testing.T) {
	t.Parallel()

	shared := newFakeRedis()
	shared.setErr = errors.New("redis down")

	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	c, _ := newClockedCache(shared, start)

	c.Set(context.Background(), "rates:current", json.RawMessage(`{"x":3}`), time.Hour)
	if _, fresh, ok := c.Get(context.Background(), "rates:current"); !ok || !fresh {
		t.Fatal("memory entry must survive a failed redis write")
	}
}

func TestCacheSurvivesRedisReadFailure(t *testing.T) {
	t.Parallel()

	shared := newFakeRedis()
	shared.getErr = errors.New("redis down")

	c := New(shared)
	if _, _, ok := c.Get(context.Background(), "rates:current"); ok {
		t.Fatal("redis read failure should degrade to a miss")
	}
}

func TestCacheDelete(t *testing.T) {
	t.Parallel()

	shared := newFakeRedis()
	c := New(shared)

	c.Set(context.Background(), "k", json.RawMessage(`1`), time.Hour)
	c.Delete(context.Background(), "k")

	if _, _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("expected miss after delete")
	}
	if _, ok := shared.data["k"]; ok {
		t.Fatal("delete must also clear the redis mirror")
	}
}
