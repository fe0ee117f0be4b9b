package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the local tier lifetime used when none is configured.
const DefaultTTL = 5 * time.Minute

type localEntry struct {
	value   string
	expires time.Time
}

// Cache is a two-tier string cache: a local TTL map in front of Redis.
// All methods are safe for concurrent use.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.RWMutex
	local map[string]localEntry
}

// New creates a Cache backed by the given Redis client. The ttl bounds
// the local tier only; Redis entry lifetimes are set per call in Set.
// A zero ttl falls back to DefaultTTL.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
		local:  make(map[string]localEntry),
	}
}

// TTL returns the local tier lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// GetLocal looks up a key in the local tier only. It never touches the
// network, which makes it usable from synchronous hot paths. Expired
// entries read as misses.
func (c *Cache) GetLocal(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.local[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expires) {
		return "", false
	}
	return entry.value, true
}

// Get looks up a key in the local tier, falling through to Redis on a
// miss. A Redis hit refills the local tier. A missing key is reported
// as (_, false, nil); only transport failures produce an error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if value, ok := c.GetLocal(key); ok {
		return value, true, nil
	}

	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	c.setLocal(key, value)
	return value, true, nil
}

// Set writes a key to Redis and, on success, to the local tier. A
// positive ttl becomes the Redis expiry; zero means no Redis expiry.
// The local tier always uses the cache's own TTL.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	c.setLocal(key, value)
	return nil
}

// Delete removes a key from both tiers. Deleting a missing key is not
// an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.local, key)
	c.mu.Unlock()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every local entry whose key matches the given Redis
// glob pattern, and deletes the matching keys from Redis via SCAN.
// Returns the number of Redis keys deleted.
func (c *Cache) Invalidate(ctx context.Context, pattern string) (int, error) {
	c.mu.Lock()
	for key := range c.local {
		if matched, _ := matchPattern(pattern, key); matched {
			delete(c.local, key)
		}
	}
	c.mu.Unlock()

	deleted := 0
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("failed to delete key during invalidation",
				"key", iter.Val(),
				"error", err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan pattern %s: %w", pattern, err)
	}
	return deleted, nil
}

// Increment atomically increases a shared counter, bypassing the local
// tier. Counters are cross-process state; caching them locally would
// serve stale values.
func (c *Cache) Increment(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment key %s: %w", key, err)
	}
	return n, nil
}

// PushPriority adds a member with a priority score to a shared ordered
// set. Lower scores pop first.
func (c *Cache) PushPriority(ctx context.Context, key, member string, score float64) error {
	if err := c.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("failed to push to ordered set %s: %w", key, err)
	}
	return nil
}

// PopPriority removes and returns the lowest-scored member of a shared
// ordered set. An empty set is reported as (_, false, nil).
func (c *Cache) PopPriority(ctx context.Context, key string) (string, bool, error) {
	members, err := c.client.ZPopMin(ctx, key, 1).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to pop from ordered set %s: %w", key, err)
	}
	if len(members) == 0 {
		return "", false, nil
	}
	member, ok := members[0].Member.(string)
	if !ok {
		return fmt.Sprint(members[0].Member), true, nil
	}
	return member, true, nil
}

// ClearLocal empties the local tier without touching Redis. Useful
// when another process may have mutated shared state.
func (c *Cache) ClearLocal() {
	c.mu.Lock()
	c.local = make(map[string]localEntry)
	c.mu.Unlock()
}

func (c *Cache) setLocal(key, value string) {
	c.mu.Lock()
	c.local[key] = localEntry{value: value, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// matchPattern implements the subset of Redis glob matching the cache
// emits: a literal prefix followed by a single trailing '*'. Anything
// else degrades to exact comparison.
func matchPattern(pattern, key string) (bool, error) {
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix := pattern[:n-1]
		return len(key) >= len(prefix) && key[:len(prefix)] == prefix, nil
	}
	return pattern == key, nil
}
