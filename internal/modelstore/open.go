package modelstore

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/sellerrisk/internal/circuitbreaker"
	"github.com/mbd888/sellerrisk/internal/config"
)

// Remote backends trip after this many consecutive failures and probe again
// after breakerCooldown.
const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

// Open builds the backend selected by cfg.ModelStore. Redis and S3 are
// wrapped in a circuit breaker. The returned func releases backend
// connections.
func Open(ctx context.Context, cfg *config.Config) (*Store, func() error, error) {
	noop := func() error { return nil }
	breaker := circuitbreaker.New(breakerThreshold, breakerCooldown)

	switch cfg.ModelStore {
	case config.ModelStoreRedis:
		blobs, err := NewRedisBlobs(cfg.RedisURL, "sellerrisk:")
		if err != nil {
			return nil, nil, err
		}
		return New(Guard(blobs, config.ModelStoreRedis, breaker)), blobs.Close, nil
	case config.ModelStoreS3:
		blobs, err := NewS3Blobs(ctx, S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return New(Guard(blobs, config.ModelStoreS3, breaker)), noop, nil
	case config.ModelStoreFile, "":
		return New(NewFileBlobs(cfg.ModelsDir)), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown model store %q", cfg.ModelStore)
	}
}
