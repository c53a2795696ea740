package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем результатов
type CacheRepository interface {
	// Get получает значение из кеша по ключу; (nil, nil) значит cache miss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кеше с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет значение из кеша
	Delete(ctx context.Context, key string) error

	// GetOrCompute returns the cached value for key, or runs compute once,
	// publishes the result under key with the TTL and returns it. Concurrent
	// callers for the same key share one compute. A cache backend outage
	// degrades to direct computation, never to a hard failure.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error)
}
