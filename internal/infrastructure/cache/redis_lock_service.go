// Package cache implements the lock/dedup service: distributed TTL locks,
// idempotency markers and durable sets, backed by Redis in production with an
// in-memory stand-in for tests.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storebridge/backend/internal/domain/shared"
	"github.com/storebridge/backend/internal/infrastructure/config"
)

// RedisLockService implements shared.LockService on Redis. SetNX gives the
// atomic set-if-absent the per-order locks and dedup markers depend on.
type RedisLockService struct {
	client *redis.Client
}

// NewRedisLockService connects to Redis and verifies the connection
func NewRedisLockService(cfg config.RedisConfig) (*RedisLockService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisLockService{client: client}, nil
}

// NewRedisLockServiceWithClient wraps an existing client. Useful for tests
// and for sharing one client across components.
func NewRedisLockServiceWithClient(client *redis.Client) *RedisLockService {
	return &RedisLockService{client: client}
}

// SetIfAbsent atomically sets key with a TTL, returning true when newly set
func (s *RedisLockService) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}

// Exists reports whether key is currently set
func (s *RedisLockService) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes key; deleting a missing key is not an error
func (s *RedisLockService) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// AddToSet adds member to the set stored at setKey
func (s *RedisLockService) AddToSet(ctx context.Context, setKey, member string) error {
	if err := s.client.SAdd(ctx, setKey, member).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", setKey, err)
	}
	return nil
}

// RemoveFromSet removes member from the set stored at setKey
func (s *RedisLockService) RemoveFromSet(ctx context.Context, setKey, member string) error {
	if err := s.client.SRem(ctx, setKey, member).Err(); err != nil {
		return fmt.Errorf("srem %s: %w", setKey, err)
	}
	return nil
}

// SetMembers returns all members of the set stored at setKey
func (s *RedisLockService) SetMembers(ctx context.Context, setKey string) ([]string, error) {
	members, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", setKey, err)
	}
	return members, nil
}

// Close closes the Redis client
func (s *RedisLockService) Close() error {
	return s.client.Close()
}

var _ shared.LockService = (*RedisLockService)(nil)
