package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records keys that have already been processed, backed by redis
// SetNX with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// PaymentKey scopes a gateway payment id so duplicate verification
// callbacks can be detected.
func PaymentKey(paymentID string) string {
	return fmt.Sprintf("idem:payment:%s", paymentID)
}

// RequestKey scopes a client-supplied Idempotency-Key header.
func RequestKey(userID, key string) string {
	return fmt.Sprintf("idem:req:%s:%s", userID, key)
}

// Seen marks the key and reports whether it had been marked before.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Check reports whether the key has been marked, without marking it.
// Callers that must not burn the key before their own write commits use
// Check first and Mark after.
func (s *Store) Check(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the key unconditionally.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
