package cache_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/cache"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

// flaky fails every call when down is set and counts calls.
type flaky struct {
	cache.Noop
	down  atomic.Bool
	calls atomic.Int32
}

func (f *flaky) Get(ctx context.Context, key string) ([]byte, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return nil, errBackend
	}
	return nil, cache.ErrMiss
}

func (f *flaky) Set(context.Context, string, []byte, time.Duration, ...string) error {
	f.calls.Add(1)
	if f.down.Load() {
		return errBackend
	}
	return nil
}

func TestBreaker_OpensOnFailures(t *testing.T) {
	ctx := context.Background()
	backend := &flaky{}
	backend.down.Store(true)

	var lastState atomic.Int32
	cfg := cache.DefaultBreakerConfig()
	cfg.Threshold = 3
	cfg.Timeout = time.Hour
	cfg.OnStateChange = func(_ string, state int) { lastState.Store(int32(state)) }

	b := cache.NewBreaker(backend, cfg, nil)

	for range 3 {
		_, err := b.Get(ctx, "a")
		require.ErrorIs(t, err, errBackend)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())
	require.Equal(t, int32(gobreaker.StateOpen), lastState.Load())

	calls := backend.calls.Load()
	_, err := b.Get(ctx, "a")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.ErrorIs(t, b.Set(ctx, "a", nil, time.Minute), gobreaker.ErrOpenState)
	require.Equal(t, calls, backend.calls.Load(), "open breaker must not reach the backend")
}

func TestBreaker_MissIsHealthy(t *testing.T) {
	ctx := context.Background()
	cfg := cache.DefaultBreakerConfig()
	cfg.Threshold = 2
	b := cache.NewBreaker(&flaky{}, cfg, nil)

	for range 10 {
		_, err := b.Get(ctx, "a")
		require.ErrorIs(t, err, cache.ErrMiss)
	}
	require.Equal(t, gobreaker.StateClosed, b.State())
}
