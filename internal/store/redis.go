package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBackend keeps each entry as a plain Redis string
type RedisBackend struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisBackend creates a new Redis client and pings it. A zero ttl keeps
// entries forever.
func NewRedisBackend(addr, password string, db int, ttl time.Duration) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{rdb: rdb, ttl: ttl}, nil
}

// Get retrieves the value stored at key
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value at key
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.rdb.Set(ctx, key, value, b.ttl).Err()
}

// Delete removes key
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// Close closes the Redis connection
func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}
