package modelstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBlobs stores keys as Redis strings under a common prefix. SET
// replaces a value atomically.
type RedisBlobs struct {
	client *redis.Client
	prefix string
}

// NewRedisBlobs parses a redis:// URL and connects lazily.
func NewRedisBlobs(url, prefix string) (*RedisBlobs, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisBlobs{client: redis.NewClient(opts), prefix: prefix}, nil
}

// NewRedisBlobsFromClient wraps an existing client.
func NewRedisBlobsFromClient(client *redis.Client, prefix string) *RedisBlobs {
	return &RedisBlobs{client: client, prefix: prefix}
}

var _ Blobs = (*RedisBlobs)(nil)

func (r *RedisBlobs) Put(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Ping checks connectivity.
func (r *RedisBlobs) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisBlobs) Close() error {
	return r.client.Close()
}
