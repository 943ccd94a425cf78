// Package cache holds the derived key state: validation snapshots, scope
// decisions and owner listings. Nothing in here is authoritative. Every
// entry can be dropped at any time and will be rebuilt from the store.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is a byte cache with tag based invalidation. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl and indexes it under every tag.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error

	Delete(ctx context.Context, keys ...string) error

	// InvalidateTags removes every entry carrying any of tags.
	InvalidateTags(ctx context.Context, tags ...string) error

	Ping(ctx context.Context) error
}

// Noop caches nothing. Every Get is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (Noop) Set(context.Context, string, []byte, time.Duration, ...string) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }

func (Noop) InvalidateTags(context.Context, ...string) error { return nil }

func (Noop) Ping(context.Context) error { return nil }
