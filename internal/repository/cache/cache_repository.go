package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/planning-data/entity-search/internal/domain/repository"
)

type cacheRepository struct {
	client  *redis.Client
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
}

// NewCacheRepository wraps redis behind a circuit breaker. A flapping cache
// backend trips the breaker and callers fall through to direct computation
// instead of stalling on every request.
func NewCacheRepository(redis *Redis) repository.CacheRepository {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "result-cache",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &cacheRepository{
		client:  redis.Client(),
		logger:  redis.logger,
		breaker: breaker,
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.breaker.Execute(func() (interface{}, error) {
		b, err := r.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return b, err
	})
	if err != nil {
		r.logger.Warn("Failed to get from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	if val == nil {
		return nil, nil
	}

	r.logger.Debug("Cache hit", zap.String("key", key))
	return val.([]byte), nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		r.logger.Warn("Failed to set cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set error: %w", err)
	}

	r.logger.Debug("Cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, key).Err()
	})
	if err != nil {
		r.logger.Warn("Failed to delete from cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache delete error: %w", err)
	}

	r.logger.Debug("Cache deleted", zap.String("key", key))
	return nil
}

// GetOrCompute is the cache-aside contract: read through on a hit, otherwise
// compute once and publish. Concurrent callers for the same key share a
// single compute via singleflight. Cache failures degrade to direct
// computation and only the compute's own error can fail the call.
func (r *cacheRepository) GetOrCompute(
	ctx context.Context,
	key string,
	ttl time.Duration,
	compute func(context.Context) ([]byte, error),
) ([]byte, error) {
	if cached, err := r.Get(ctx, key); err == nil && cached != nil {
		return cached, nil
	}

	val, err, _ := r.group.Do(key, func() (interface{}, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		// Publish failure is already logged; the computed value still serves
		// this request.
		_ = r.Set(ctx, key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]byte), nil
}
