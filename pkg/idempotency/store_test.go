package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, ttl), mr
}

func TestSeenMarksOnFirstUse(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	seen, err := store.Seen(ctx, PaymentKey("pay_1"))
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.Seen(ctx, PaymentKey("pay_1"))
	require.NoError(t, err)
	assert.True(t, seen)

	// A different payment is unaffected.
	seen, err = store.Seen(ctx, PaymentKey("pay_2"))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSeenExpires(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()

	_, err := store.Seen(ctx, RequestKey("u1", "k1"))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	seen, err := store.Seen(ctx, RequestKey("u1", "k1"))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCheckDoesNotMark(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	// Checking never burns the key, no matter how often.
	for range 3 {
		seen, err := store.Check(ctx, PaymentKey("pay_1"))
		require.NoError(t, err)
		assert.False(t, seen)
	}

	require.NoError(t, store.Mark(ctx, PaymentKey("pay_1")))

	seen, err := store.Check(ctx, PaymentKey("pay_1"))
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMarkExpires(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Mark(ctx, PaymentKey("pay_1")))
	mr.FastForward(2 * time.Minute)

	seen, err := store.Check(ctx, PaymentKey("pay_1"))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSeenSurfacesRedisErrors(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	mr.Close()

	_, err := store.Seen(context.Background(), PaymentKey("pay_1"))
	assert.Error(t, err)
}

func TestKeyScoping(t *testing.T) {
	assert.Equal(t, "idem:payment:pay_1", PaymentKey("pay_1"))
	assert.Equal(t, "idem:req:u1:k1", RequestKey("u1", "k1"))
	assert.NotEqual(t, RequestKey("u1", "k1"), RequestKey("u2", "k1"))
}
