package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, ttl, nil), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "grant:u1:p1", "admin", 0))

	value, ok, err := c.Get(ctx, "grant:u1:p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", value)
}

func TestGetMiss(t *testing.T) {
	c, _ := setupCache(t, time.Minute)

	value, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestGetLocalOnlySeesPopulated(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	// Written directly to Redis, never seen by this cache instance.
	mr.Set("external", "value")

	_, ok := c.GetLocal("external")
	assert.False(t, ok)

	// A Get pulls it into the local tier.
	_, ok, err := c.Get(ctx, "external")
	require.NoError(t, err)
	require.True(t, ok)

	value, ok := c.GetLocal("external")
	assert.True(t, ok)
	assert.Equal(t, "value", value)
}

func TestLocalTierExpires(t *testing.T) {
	c, _ := setupCache(t, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	time.Sleep(20 * time.Millisecond)

	_, ok := c.GetLocal("k")
	assert.False(t, ok, "local entry should have expired")

	// Redis still holds it, so Get falls through and refills.
	value, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestSetWithRedisExpiry(t *testing.T) {
	c, mr := setupCache(t, time.Minute)

	require.NoError(t, c.Set(context.Background(), "k", "v", 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL("k"))
}

func TestDelete(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok := c.GetLocal("k")
	assert.False(t, ok)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.Delete(ctx, "never-existed"))
}

func TestInvalidateByPrefix(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "grant:u1:p1", "admin", 0))
	require.NoError(t, c.Set(ctx, "grant:u1:p2", "viewer", 0))
	require.NoError(t, c.Set(ctx, "grant:u2:p1", "member", 0))

	deleted, err := c.Invalidate(ctx, "grant:u1:*")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, ok := c.GetLocal("grant:u1:p1")
	assert.False(t, ok)

	value, ok, err := c.Get(ctx, "grant:u2:p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "member", value)
}

func TestClearLocal(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	c.ClearLocal()

	_, ok := c.GetLocal("k")
	assert.False(t, ok)

	// Redis copy survives.
	value, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestIncrement(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	n, err := c.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPriorityOrdering(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.PushPriority(ctx, "queue", "low", 10))
	require.NoError(t, c.PushPriority(ctx, "queue", "urgent", 1))
	require.NoError(t, c.PushPriority(ctx, "queue", "normal", 5))

	member, ok, err := c.PopPriority(ctx, "queue")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "urgent", member)

	member, ok, err = c.PopPriority(ctx, "queue")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "normal", member)

	member, ok, err = c.PopPriority(ctx, "queue")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "low", member)

	_, ok, err = c.PopPriority(ctx, "queue")
	require.NoError(t, err)
	assert.False(t, ok)
}
