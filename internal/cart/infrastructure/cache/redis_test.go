package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mann275/marketplace/internal/cart/application"
	"github.com/Mann275/marketplace/internal/cart/domain"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func sampleCart() *domain.Cart {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Cart{
		UserID: "u1",
		Items: []domain.CartItem{
			{ProductID: "p1", Quantity: 2, AddedAt: now},
			{ProductID: "p2", Quantity: 1, AddedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", sampleCart()))

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sampleCart(), got)
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, application.ErrCacheMiss)
}

func TestCacheDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", sampleCart()))
	require.NoError(t, c.Delete(ctx, "u1"))

	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, application.ErrCacheMiss)

	// Deleting an absent key is not an error.
	assert.NoError(t, c.Delete(ctx, "u1"))
}

func TestCacheTTLJitter(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", sampleCart()))

	ttl := mr.TTL(cacheKey("u1"))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", sampleCart()))
	mr.FastForward(21 * time.Minute)

	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, application.ErrCacheMiss)
}

func TestCacheCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(cacheKey("u1"), "{not json"))

	_, err := c.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, application.ErrCacheMiss)
}
