package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix  = "idempotency:lock:"
	orderKeyPrefix = "idempotency:order:"
)

// RedisStore implements Store with SET NX locks and plain keys for results.
type RedisStore struct {
	client    *redis.Client
	lockTTL   time.Duration
	resultTTL time.Duration
}

// NewRedisStore creates a Redis-backed idempotency store. Results are kept for
// resultTTL; zero keeps them forever.
func NewRedisStore(client *redis.Client, lockTTL, resultTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		lockTTL:   lockTTL,
		resultTTL: resultTTL,
	}
}

// TryLock sets the lock key only if it does not exist.
func (s *RedisStore) TryLock(ctx context.Context, token string) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKeyPrefix+token, "1", s.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx idempotency lock: %w", err)
	}
	return ok, nil
}

// Release deletes the lock key.
func (s *RedisStore) Release(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, lockKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis del idempotency lock: %w", err)
	}
	return nil
}

// Remember stores the order id and drops the lock in one transaction.
func (s *RedisStore) Remember(ctx context.Context, token, orderID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, orderKeyPrefix+token, orderID, s.resultTTL)
		pipe.Del(ctx, lockKeyPrefix+token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis remember idempotency result: %w", err)
	}
	return nil
}

// Recall reads the stored order id.
func (s *RedisStore) Recall(ctx context.Context, token string) (string, bool, error) {
	id, err := s.client.Get(ctx, orderKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get idempotency result: %w", err)
	}
	return id, true, nil
}
