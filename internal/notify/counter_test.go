package notify

import (
	"context"
	"testing"
	"time"

	"leaseflow/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCounter(t *testing.T) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCounter(client, time.Minute, logger.NewNoOpLogger()), mr
}

func TestRedisCounter_GetSetInvalidate(t *testing.T) {
	c, mr := newRedisCounter(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, gen, ok := c.Get(ctx, a)
	assert.False(t, ok)
	assert.EqualValues(t, 0, gen)

	c.Set(ctx, a, 3, gen)
	c.Set(ctx, b, 0, gen)
	n, _, ok := c.Get(ctx, a)
	assert.True(t, ok)
	assert.EqualValues(t, 3, n)
	n, _, ok = c.Get(ctx, b)
	assert.True(t, ok)
	assert.EqualValues(t, 0, n)

	c.Invalidate(ctx, a, b)
	_, gen, ok = c.Get(ctx, a)
	assert.False(t, ok)
	assert.EqualValues(t, 1, gen)
	_, _, ok = c.Get(ctx, b)
	assert.False(t, ok)

	c.Set(ctx, a, 1, gen)
	_, _, ok = c.Get(ctx, a)
	assert.True(t, ok)
	mr.FastForward(2 * time.Minute)
	_, _, ok = c.Get(ctx, a)
	assert.False(t, ok)
}

func TestRedisCounter_FillAfterInvalidateIsDropped(t *testing.T) {
	c, mr := newRedisCounter(t)
	ctx := context.Background()
	id := uuid.New()

	// a reader misses and counts before a delivery commits
	_, gen, ok := c.Get(ctx, id)
	require.False(t, ok)
	staleCount := int64(0)

	// the delivery commits and invalidates before the reader fills
	c.Invalidate(ctx, id)
	c.Set(ctx, id, staleCount, gen)

	_, _, ok = c.Get(ctx, id)
	assert.False(t, ok, "stale count must not be cached")
	assert.False(t, mr.Exists(unreadKey(id)))

	// the next reader fills under the new generation
	_, gen, _ = c.Get(ctx, id)
	c.Set(ctx, id, 1, gen)
	n, _, ok := c.Get(ctx, id)
	assert.True(t, ok)
	assert.EqualValues(t, 1, n)

	assert.True(t, mr.TTL(generationKey(id)) > 0)
}

func TestRedisCounter_ServerDownIsAMiss(t *testing.T) {
	c, mr := newRedisCounter(t)
	ctx := context.Background()
	id := uuid.New()
	c.Set(ctx, id, 5, 0)

	mr.Close()
	_, gen, ok := c.Get(ctx, id)
	assert.False(t, ok)
	assert.Equal(t, NoFill, gen)
	c.Set(ctx, id, 6, gen)
	c.Invalidate(ctx, id)
}

func TestNopCounter(t *testing.T) {
	var c NopCounter
	c.Set(context.Background(), uuid.New(), 1, 0)
	_, gen, ok := c.Get(context.Background(), uuid.New())
	assert.False(t, ok)
	assert.Equal(t, NoFill, gen)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
