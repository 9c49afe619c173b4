package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
)

// Entry is one record in a bounded log.
type Entry struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// RedisClient is the subset of redis.Client the log needs for persistence.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// newEntrySuffix generates the random part of entry IDs. IDs are
// timestamp + suffix; uniqueness is not cryptographic, collisions are
// negligible at this access rate.
var newEntrySuffix, _ = nanoid.Standard(10)

// Log is a bounded, most-recent-first append log. The in-memory slice is
// authoritative; the whole list is serialized to a single Redis key after
// each mutation, mirroring per-key local storage blobs. Persistence
// failures are reported to the caller but never corrupt the in-memory
// state, and load failures degrade to an empty log.
type Log struct {
	mu      sync.Mutex
	key     string
	max     int
	entries []Entry
	redis   RedisClient
	now     func() time.Time
}

// NewLog creates a log persisted under key, truncated to max entries.
// redisClient may be nil for an in-memory-only log.
func NewLog(key string, max int, redisClient RedisClient) *Log {
	if max < 1 {
		max = 1
	}
	return &Log{
		key:   key,
		max:   max,
		redis: redisClient,
		now:   time.Now,
	}
}

// Load restores the persisted list. Any read or decode failure leaves the
// log empty; persistence is best-effort.
func (l *Log) Load(ctx context.Context) {
	if l.redis == nil {
		return
	}
	data, err := l.redis.Get(ctx, l.key).Bytes()
	if err == redis.Nil {
		return
	}
	if err != nil {
		log.Printf("log %s load error: %v", l.key, err)
		return
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("log %s decode error: %v", l.key, err)
		return
	}
	if len(entries) > l.max {
		entries = entries[:l.max]
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

// Add prepends a new entry and truncates the oldest past the configured
// maximum. The returned ID is always valid; a non-nil error means only
// that persisting the updated list failed.
func (l *Log) Add(ctx context.Context, payload json.RawMessage) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		ID:        fmt.Sprintf("%d-%s", l.now().UnixMilli(), newEntrySuffix()),
		CreatedAt: l.now().UTC(),
		Payload:   payload,
	}

	l.entries = append([]Entry{entry}, l.entries...)
	if len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}

	return entry.ID, l.persistLocked(ctx)
}

// Entries returns a copy of the list, most recent first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Remove deletes the entry with the given ID, reporting whether it existed.
func (l *Log) Remove(ctx context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, entry := range l.entries {
		if entry.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			if err := l.persistLocked(ctx); err != nil {
				log.Printf("log %s persist error after remove: %v", l.key, err)
			}
			return true
		}
	}
	return false
}

// Clear empties the log and drops the persisted key.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	if l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", l.key, err)
	}
	return nil
}

// Len reports the current entry count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) persistLocked(ctx context.Context) error {
	if l.redis == nil {
		return nil
	}
	data, err := json.Marshal(l.entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", l.key, err)
	}
	if err := l.redis.Set(ctx, l.key, data, 0).Err(); err != nil {
		return fmt.Errorf("persist %s: %w", l.key, err)
	}
	return nil
}
