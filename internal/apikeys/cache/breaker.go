package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker in front of a remote cache.
type BreakerConfig struct {
	Name string

	// MaxRequests allowed through while half-open.
	MaxRequests int
	// Interval is the closed-state window after which counts reset.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// Threshold is the minimum number of requests before the failure ratio
	// is considered.
	Threshold int
	// FailureRatio trips the breaker once reached.
	FailureRatio float64

	// OnStateChange is called with the new state (0 closed, 1 half-open,
	// 2 open).
	OnStateChange func(name string, state int)
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "cache",
		MaxRequests:  1,
		Interval:     30 * time.Second,
		Timeout:      10 * time.Second,
		Threshold:    5,
		FailureRatio: 0.5,
	}
}

// Breaker guards a Cache with a circuit breaker. While open every call fails
// fast with gobreaker.ErrOpenState, which callers treat like any backend
// error.
type Breaker struct {
	next Cache
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Cache, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: safeIntToUint32(cfg.MaxRequests),
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < safeIntToUint32(cfg.Threshold) {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, int(to))
			}
		},
		// A miss is a healthy answer.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMiss)
		},
	}

	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (b *Breaker) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	return b.run(func() error { return b.next.Set(ctx, key, value, ttl, tags...) })
}

func (b *Breaker) Delete(ctx context.Context, keys ...string) error {
	return b.run(func() error { return b.next.Delete(ctx, keys...) })
}

func (b *Breaker) InvalidateTags(ctx context.Context, tags ...string) error {
	return b.run(func() error { return b.next.InvalidateTags(ctx, tags...) })
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (b *Breaker) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *Breaker) run(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, fn() })
	return err
}

func safeIntToUint32(v int) uint32 {
	if v <= 0 {
		return 0
	}
	if v > int(^uint32(0)>>1) {
		return ^uint32(0) >> 1
	}
	return uint32(v)
}
