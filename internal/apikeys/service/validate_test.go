package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/cache"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/pkg/keyx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestValidate_RoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	res, err := e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.NoError(t, res.Reason)
	require.Equal(t, gen.Key, res.Key)

	// Second call is served with a cached snapshot.
	res, err = e.svc.Validate(ctx, "  "+gen.Secret+"\n")
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.True(t, e.validationCached(t, gen.Key.KeyPrefix))
}

func TestValidate_TamperedSecret(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	for i := keyx.PrefixLen + 1; i < keyx.KeyLen; i++ {
		b := []byte(gen.Secret)
		if b[i] == 'a' {
			b[i] = 'b'
		} else {
			b[i] = 'a'
		}

		res, err := e.svc.Validate(ctx, string(b))
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.ErrorIs(t, res.Reason, service.ErrInvalidSecret, "position %d", i)
	}
}

func TestValidate_Malformed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	// No lookup happens for malformed input, so a dead store is fine.
	require.NoError(t, e.store.Close())

	for _, candidate := range []string{
		"",
		"ak_short",
		"sk" + gen.Secret[2:],
		gen.Secret[:keyx.PrefixLen] + "-" + gen.Secret[keyx.PrefixLen+1:],
		gen.Secret[:keyx.KeyLen-1] + "Z",
	} {
		res, err := e.svc.Validate(ctx, candidate)
		require.NoError(t, err, candidate)
		require.False(t, res.Valid)
		require.ErrorIs(t, res.Reason, service.ErrMalformedKey)
	}
}

func TestValidate_UnknownPrefix(t *testing.T) {
	e := newEnv(t)

	res, err := e.svc.Validate(context.Background(), "ak_000000000000_"+strings.Repeat("0", 64))
	require.NoError(t, err)
	require.ErrorIs(t, res.Reason, service.ErrKeyNotFound)
}

func TestValidate_ExpiredWhileCached(t *testing.T) {
	e := newEnv(t, func(s *service.KeyService) {
		// Long validation TTL so the entry outlives the key.
		s.Cache = cache.NewKeyCache(s.Cache.Backend(), cache.TTLs{Validation: 48 * time.Hour}, nil)
	})
	ctx := context.Background()

	gen, err := e.svc.Generate(ctx, "user-1", "short lived", service.GenerateOptions{
		Scopes:     billingRead(),
		ExpiryDays: 1,
	})
	require.NoError(t, err)

	res, err := e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.True(t, e.validationCached(t, gen.Key.KeyPrefix))

	e.clock.Advance(24 * time.Hour)

	res, err = e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.ErrorIs(t, res.Reason, service.ErrKeyExpired)
	require.False(t, e.validationCached(t, gen.Key.KeyPrefix), "expired entry is dropped on detection")
}

func TestValidate_StaleCacheDefersToStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	_, err := e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)

	// Deactivate behind the cache's back.
	inactive := false
	_, err = e.store.APIKeys().Update(ctx, gen.Key.ID, domain.APIKeyPatch{IsActive: &inactive}, e.clock.Now())
	require.NoError(t, err)
	require.True(t, e.validationCached(t, gen.Key.KeyPrefix))

	res, err := e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.ErrorIs(t, res.Reason, service.ErrKeyDisabled)
	require.False(t, e.validationCached(t, gen.Key.KeyPrefix))
}

func TestValidate_CachedDisabledSnapshotShortCircuits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	snap := gen.Key
	snap.IsActive = false
	e.svc.Cache.SetValidation(ctx, snap)

	require.NoError(t, e.store.Close())
	res, err := e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err, "no store read for a key cached as disabled")
	require.ErrorIs(t, res.Reason, service.ErrKeyDisabled)
}

func TestValidate_RepositoryFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	require.NoError(t, e.store.Close())

	res, err := e.svc.Validate(ctx, gen.Secret)
	require.Error(t, err)
	require.False(t, res.Valid)
	require.NoError(t, res.Reason, "an outage is not an invalid key")
	require.False(t, service.IsAuthFailure(err))
	require.Equal(t, "server_error", service.Code(err))

	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.CacheRequests().WithLabelValues(cache.CategoryValidation, "miss")))
}

type brokenCache struct{ cache.Noop }

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (brokenCache) Set(context.Context, string, []byte, time.Duration, ...string) error {
	return errCacheDown
}
func (brokenCache) InvalidateTags(context.Context, ...string) error { return errCacheDown }

func TestValidate_WorksWithoutCache(t *testing.T) {
	for name, kc := range map[string]*cache.KeyCache{
		"nil":    nil,
		"broken": cache.NewKeyCache(brokenCache{}, cache.TTLs{}, nil),
	} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, func(s *service.KeyService) { s.Cache = kc })
			ctx := context.Background()
			gen := e.generate(t, "user-1", billingRead())

			res, err := e.svc.Validate(ctx, gen.Secret)
			require.NoError(t, err)
			require.True(t, res.Valid)
			require.True(t, e.svc.CheckScope(ctx, res.Key, "billing", "read"))

			require.NoError(t, e.svc.Revoke(ctx, gen.Key.ID, ""))
			res, err = e.svc.Validate(ctx, gen.Secret)
			require.NoError(t, err)
			require.ErrorIs(t, res.Reason, service.ErrKeyDisabled)
		})
	}
}

func TestCheckScope(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	key := domain.KeySnapshot{
		ID:      "k1",
		OwnerID: "u1",
		Scopes:  domain.Scopes{{Resource: "a", Action: "read"}},
	}

	require.True(t, e.svc.CheckScope(ctx, key, "a", "read"))
	require.False(t, e.svc.CheckScope(ctx, key, "a", "write"))
	require.False(t, e.svc.CheckScope(ctx, key, "b", "read"))
	require.False(t, e.svc.CheckScope(ctx, key, "", ""))

	// Decisions are cached per key.
	allowed, ok := e.svc.Cache.GetScope(ctx, "k1", "a", "write")
	require.True(t, ok)
	require.False(t, allowed)

	legacy := domain.KeySnapshot{ID: "k2", OwnerID: "u1"}
	for _, pair := range [][2]string{{"a", "read"}, {"b", "delete"}, {"anything", "at-all"}} {
		require.True(t, e.svc.CheckScope(ctx, legacy, pair[0], pair[1]))
	}

	none := domain.KeySnapshot{ID: "k3", OwnerID: "u1", Scopes: domain.Scopes{}}
	require.False(t, e.svc.CheckScope(ctx, none, "a", "read"), "an empty list grants nothing")

	require.NoError(t, e.svc.Authorize(ctx, key, "a", "read"))
	require.ErrorIs(t, e.svc.Authorize(ctx, key, "a", "write"), service.ErrInsufficientScope)
}

func TestCheckScope_DelimiterInNames(t *testing.T) {
	ctx := context.Background()
	scopes := domain.Scopes{{Resource: "a", Action: "b:c"}}

	for name, opt := range map[string]func(*service.KeyService){
		"cached":   func(*service.KeyService) {},
		"no cache": func(s *service.KeyService) { s.Cache = nil },
	} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, opt)
			gen := e.generate(t, "user-1", scopes)

			res, err := e.svc.Validate(ctx, gen.Secret)
			require.NoError(t, err)
			require.True(t, res.Valid)

			for range 2 {
				require.True(t, e.svc.CheckScope(ctx, res.Key, "a", "b:c"))
				require.False(t, e.svc.CheckScope(ctx, res.Key, "a:b", "c"))
				require.False(t, e.svc.CheckScope(ctx, res.Key, "a:b:c", "x"))
			}
		})
	}
}

func TestRecordUsage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	e.clock.Advance(time.Minute)
	require.NoError(t, e.svc.RecordUsage(ctx, gen.Key.ID, "10.0.0.7"))

	k, err := e.store.APIKeys().GetByID(ctx, gen.Key.ID)
	require.NoError(t, err)
	require.NotNil(t, k.LastUsedAt)
	require.Equal(t, e.clock.Now(), *k.LastUsedAt)
	require.Equal(t, "10.0.0.7", k.LastUsedIP)

	e.clock.Advance(time.Minute)
	require.NoError(t, e.svc.RecordUsage(ctx, gen.Key.ID, ""))
	k, err = e.store.APIKeys().GetByID(ctx, gen.Key.ID)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.7", k.LastUsedIP, "empty ip leaves the last one")

	require.ErrorIs(t, e.svc.RecordUsage(ctx, "missing", ""), service.ErrKeyNotFound)
}

// The end to end billing scenario: issue, use, check scopes, revoke.
func TestBillingScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	gen, err := e.svc.Generate(ctx, "acct-42", "billing reader", service.GenerateOptions{
		Scopes:     domain.Scopes{{Resource: "billing", Action: "read"}},
		ExpiryDays: 30,
	})
	require.NoError(t, err)
	require.Regexp(t, `^ak_[0-9a-f]{12}_[0-9a-f]{64}$`, gen.Secret)

	res, err := e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.True(t, res.Valid)

	require.True(t, e.svc.CheckScope(ctx, res.Key, "billing", "read"))
	require.False(t, e.svc.CheckScope(ctx, res.Key, "billing", "delete"))

	require.NoError(t, e.svc.Revoke(ctx, res.Key.ID, ""))

	e.clock.Advance(cache.DefaultTTLs().Validation + time.Second)
	res, err = e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.ErrorIs(t, res.Reason, service.ErrKeyDisabled)
	require.Equal(t, "key_disabled", service.Code(res.Reason))
}

func TestCode(t *testing.T) {
	require.Equal(t, "", service.Code(nil))
	require.Equal(t, "quota_exceeded", service.Code(service.ErrQuotaExceeded))
	require.Equal(t, "invalid_scopes", service.Code(errors.Join(service.ErrInvalidScopes, errors.New("detail"))))
	require.Equal(t, "server_error", service.Code(errors.New("boom")))

	require.True(t, service.IsAuthFailure(service.ErrKeyExpired))
	require.False(t, service.IsAuthFailure(service.ErrInsufficientScope))
}
