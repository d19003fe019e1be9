package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a TTL store backed by Redis.
type RedisStore struct {
	rc *redis.Client
}

// NewRedisStore wraps an existing client so other subsystems can share it.
func NewRedisStore(rc *redis.Client) *RedisStore {
	return &RedisStore{rc: rc}
}

// Get reads value and TTL in one round trip.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, time.Duration, error) {
	pipe := s.rc.TxPipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.TTL(ctx, key)
	_, err := pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	value, err := get.Bytes()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	remaining := ttl.Val()
	if remaining < 0 {
		// key without expiry or expired between the two commands
		return nil, 0, ErrNotFound
	}
	return value, remaining, nil
}

// Set stores value with the given TTL, overwriting any previous value.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	if err := s.rc.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	remaining, err := s.rc.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if remaining < 0 {
		return 0, ErrNotFound
	}
	return remaining, nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rc.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rc.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
