package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Address  string
	Password string
	DB       int

	// Prefix namespaces every key this service writes.
	Prefix string

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// TagTTL bounds how long a tag index outlives its members. It should be
	// at least the longest entry TTL; a longer entry stretches its tags.
	TagTTL time.Duration
}

// DefaultRedisConfig returns a config for a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:      "localhost:6379",
		Prefix:       "apikeys:",
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		TagTTL:       time.Hour,
	}
}

// Redis is a Cache backed by Redis. Tags are Redis sets of member keys.
type Redis struct {
	client *redis.Client
	prefix string
	tagTTL time.Duration
	owned  bool
}

// NewRedis dials Redis with cfg. The returned cache owns the client.
func NewRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	r := NewRedisWithClient(client, cfg.Prefix, cfg.TagTTL)
	r.owned = true
	return r
}

// NewRedisWithClient wraps an existing client. Close leaves it open.
func NewRedisWithClient(client *redis.Client, prefix string, tagTTL time.Duration) *Redis {
	if tagTTL <= 0 {
		tagTTL = time.Hour
	}
	return &Redis{client: client, prefix: prefix, tagTTL: tagTTL}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if ttl <= 0 {
		return nil
	}

	full := r.prefix + key
	tagTTL := max(r.tagTTL, ttl)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, full, value, ttl)
		for _, tag := range tags {
			tk := r.tagKey(tag)
			p.SAdd(ctx, tk, full)
			p.Expire(ctx, tk, tagTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		tk := r.tagKey(tag)
		members, err := r.client.SMembers(ctx, tk).Result()
		if err != nil {
			return fmt.Errorf("redis smembers: %w", err)
		}
		// Members are already prefixed.
		if err := r.client.Del(ctx, append(members, tk)...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

func (r *Redis) tagKey(tag string) string {
	return r.prefix + "tag:" + tag
}
