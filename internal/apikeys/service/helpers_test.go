package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/cache"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/metrics"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store/drivers/sqlite"
	"github.com/aussiebroadwan/apikeys/pkg/keyx"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	svc     *service.KeyService
	store   *sqlite.Store
	mem     *cache.Memory
	clock   *clock
	metrics *metrics.Metrics
}

func newEnv(t *testing.T, opts ...func(*service.KeyService)) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := keyx.NewCodec([]byte("test-pepper"))
	require.NoError(t, err)

	clk := &clock{t: baseTime}
	mem := cache.NewMemory(clk.Now)
	m := metrics.New("test")

	svc := &service.KeyService{
		Store:   st,
		Codec:   codec,
		Cache:   cache.NewKeyCache(mem, cache.DefaultTTLs(), m),
		Metrics: m,
		Now:     clk.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return &env{svc: svc, store: st, mem: mem, clock: clk, metrics: m}
}

func billingRead() domain.Scopes {
	return domain.Scopes{{Resource: "billing", Action: "read"}}
}

func (e *env) generate(t *testing.T, owner string, scopes domain.Scopes) service.GeneratedKey {
	t.Helper()
	gen, err := e.svc.Generate(context.Background(), owner, "test key", service.GenerateOptions{Scopes: scopes})
	require.NoError(t, err)
	return gen
}

func (e *env) validationCached(t *testing.T, prefix string) bool {
	t.Helper()
	_, err := e.mem.Get(context.Background(), cache.ValidationKey(prefix))
	return err == nil
}
