package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newUnreachableRepository builds a repository whose backend never answers,
// to exercise the degrade paths without a redis instance.
func newUnreachableRepository() *cacheRepository {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})

	return &cacheRepository{
		client: client,
		logger: zap.NewNop(),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "result-cache",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func TestGetOrCompute_BackendOutageDegradesToCompute(t *testing.T) {
	repo := newUnreachableRepository()
	ctx := context.Background()

	var calls int32
	value, err := repo.GetOrCompute(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("computed"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("computed"), value)
	assert.EqualValues(t, 1, calls)
}

func TestGetOrCompute_ComputeErrorSurfaces(t *testing.T) {
	repo := newUnreachableRepository()
	ctx := context.Background()

	boom := errors.New("query failed")
	_, err := repo.GetOrCompute(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestGetOrCompute_ConcurrentCallersShareOneCompute(t *testing.T) {
	repo := newUnreachableRepository()
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("shared"), nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([][]byte, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.GetOrCompute(ctx, "shared-key", time.Minute, compute)
		}(i)
	}

	// let every caller queue up on the same key before the compute finishes
	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("shared"), results[i])
	}
	assert.EqualValues(t, 1, calls)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	repo := newUnreachableRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Get(ctx, "k")
		assert.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, repo.breaker.State())

	// an open breaker still degrades GetOrCompute to direct computation
	value, err := repo.GetOrCompute(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("still served"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("still served"), value)
}
