package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces all connector keys, e.g. "solconnect:".
	KeyPrefix string

	// OpTimeout bounds each backend call. Defaults to 5s.
	OpTimeout time.Duration
}

// RedisBackend stores items in Redis. Useful for server-side deployments
// where connector preferences must survive process restarts and be shared
// across instances.
type RedisBackend struct {
	client    *redis.Client
	keyPrefix string
	opTimeout time.Duration
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisBackendWithClient(client, cfg.KeyPrefix, cfg.OpTimeout), nil
}

// NewRedisBackendWithClient wraps an existing client. Used by tests.
func NewRedisBackendWithClient(client *redis.Client, keyPrefix string, opTimeout time.Duration) *RedisBackend {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &RedisBackend{
		client:    client,
		keyPrefix: keyPrefix,
		opTimeout: opTimeout,
	}
}

func (r *RedisBackend) key(k string) string {
	return r.keyPrefix + k
}

func (r *RedisBackend) GetItem(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (r *RedisBackend) SetItem(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisBackend) RemoveItem(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

var _ Backend = (*RedisBackend)(nil)
