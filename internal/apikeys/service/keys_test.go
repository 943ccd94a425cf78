package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/pkg/keyx"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	gen, err := e.svc.Generate(ctx, "user-1", "  ci deploy  ", service.GenerateOptions{
		Scopes:     domain.Scopes{{Resource: "billing", Action: "read"}, {Resource: " billing ", Action: "read"}},
		ExpiryDays: 30,
	})
	require.NoError(t, err)

	require.Len(t, gen.Secret, keyx.KeyLen)
	require.True(t, strings.HasPrefix(gen.Secret, keyx.Scheme))
	require.True(t, strings.HasPrefix(gen.Secret, gen.Key.KeyPrefix))
	require.Equal(t, gen.Key.KeyPrefix+"_********", gen.Preview)

	require.Equal(t, "ci deploy", gen.Key.Name)
	require.Equal(t, "user-1", gen.Key.OwnerID)
	require.True(t, gen.Key.IsActive)
	require.Equal(t, billingRead(), gen.Key.Scopes, "duplicates are dropped")
	require.NotNil(t, gen.Key.ExpiresAt)
	require.Equal(t, baseTime.Add(30*24*time.Hour), *gen.Key.ExpiresAt)

	stored, err := e.store.APIKeys().GetByID(ctx, gen.Key.ID)
	require.NoError(t, err)
	require.NotContains(t, stored.KeyHash, gen.Secret[keyx.PrefixLen+1:])
	require.NotEqual(t, gen.Secret, stored.KeyHash)
}

func TestGenerate_Defaults(t *testing.T) {
	e := newEnv(t)
	inactive := false

	gen, err := e.svc.Generate(context.Background(), "user-1", "k", service.GenerateOptions{
		Scopes:   billingRead(),
		IsActive: &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, baseTime.Add(service.DefaultExpiryDays*24*time.Hour), *gen.Key.ExpiresAt)
	require.False(t, gen.Key.IsActive)
}

func TestGenerate_InputErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		owner string
		key   string
		opts  service.GenerateOptions
		want  error
	}{
		{"missing owner", " ", "k", service.GenerateOptions{Scopes: billingRead()}, service.ErrInvalidOwner},
		{"blank name", "u", "   ", service.GenerateOptions{Scopes: billingRead()}, service.ErrInvalidName},
		{"long name", "u", strings.Repeat("n", 101), service.GenerateOptions{Scopes: billingRead()}, service.ErrInvalidName},
		{"no scopes", "u", "k", service.GenerateOptions{}, service.ErrInvalidScopes},
		{"empty scopes", "u", "k", service.GenerateOptions{Scopes: domain.Scopes{}}, service.ErrInvalidScopes},
		{"blank action", "u", "k", service.GenerateOptions{Scopes: domain.Scopes{{Resource: "a"}}}, service.ErrInvalidScopes},
		{"negative expiry", "u", "k", service.GenerateOptions{Scopes: billingRead(), ExpiryDays: -1}, service.ErrInvalidExpiry},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Generate(ctx, tc.owner, tc.key, tc.opts)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := e.svc.Generate(ctx, "u", strings.Repeat("n", 100), service.GenerateOptions{Scopes: billingRead()})
	require.NoError(t, err, "100 characters is allowed")
}

func TestGenerate_Unrestricted(t *testing.T) {
	e := newEnv(t, func(s *service.KeyService) { s.AllowUnrestricted = true })

	gen, err := e.svc.Generate(context.Background(), "u", "legacy", service.GenerateOptions{Scopes: domain.Scopes{}})
	require.NoError(t, err)
	require.Nil(t, gen.Key.Scopes)
	require.True(t, e.svc.CheckScope(context.Background(), gen.Key, "anything", "delete"))
}

func TestGenerate_Quota(t *testing.T) {
	e := newEnv(t, func(s *service.KeyService) { s.MaxKeysPerOwner = 3 })
	ctx := context.Background()

	first := e.generate(t, "user-1", billingRead())
	e.generate(t, "user-1", billingRead())
	require.NoError(t, e.svc.Revoke(ctx, first.Key.ID, "user-1"))

	// The MAX-th key succeeds, revoked keys still count.
	e.generate(t, "user-1", billingRead())

	_, err := e.svc.Generate(ctx, "user-1", "one too many", service.GenerateOptions{Scopes: billingRead()})
	require.ErrorIs(t, err, service.ErrQuotaExceeded)

	// Other owners are unaffected.
	e.generate(t, "user-2", billingRead())
}

func TestListForOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	empty, err := e.svc.ListForOwner(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	a := e.generate(t, "user-1", billingRead())
	e.clock.Advance(time.Minute)
	b := e.generate(t, "user-1", billingRead())
	e.generate(t, "user-2", billingRead())

	list, err := e.svc.ListForOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2, "generate drops the cached empty listing")
	require.Equal(t, b.Key.ID, list[0].ID, "newest first")
	require.Equal(t, a.Key.ID, list[1].ID)
	require.Equal(t, a.Preview, list[1].Preview)

	require.NoError(t, e.svc.Revoke(ctx, a.Key.ID, "user-1"))
	list, err = e.svc.ListForOwner(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, list[1].IsActive, "revoke drops the cached listing")

	_, err = e.svc.ListForOwner(ctx, "")
	require.ErrorIs(t, err, service.ErrInvalidOwner)
}

func TestGet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	got, err := e.svc.Get(ctx, gen.Key.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, gen.Key.ID, got.ID)
	require.Equal(t, gen.Preview, got.Preview)

	_, err = e.svc.Get(ctx, gen.Key.ID, "user-2")
	require.ErrorIs(t, err, service.ErrPermissionDenied)

	_, err = e.svc.Get(ctx, "missing", "")
	require.ErrorIs(t, err, service.ErrKeyNotFound)
}

func TestRevoke(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	t.Run("other owner", func(t *testing.T) {
		require.ErrorIs(t, e.svc.Revoke(ctx, gen.Key.ID, "user-2"), service.ErrPermissionDenied)
	})

	t.Run("unknown key", func(t *testing.T) {
		require.ErrorIs(t, e.svc.Revoke(ctx, "missing", ""), service.ErrKeyNotFound)
	})

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, e.svc.Revoke(ctx, gen.Key.ID, "user-1"))
		require.NoError(t, e.svc.Revoke(ctx, gen.Key.ID, ""))

		k, err := e.store.APIKeys().GetByID(ctx, gen.Key.ID)
		require.NoError(t, err)
		require.False(t, k.IsActive)
	})
}

func TestRevoke_VisibleImmediately(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	res, err := e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.True(t, e.validationCached(t, gen.Key.KeyPrefix))

	require.NoError(t, e.svc.Revoke(ctx, gen.Key.ID, "user-1"))
	require.False(t, e.validationCached(t, gen.Key.KeyPrefix))

	res, err = e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.ErrorIs(t, res.Reason, service.ErrKeyDisabled)

	// And it stays disabled once every TTL has passed.
	e.clock.Advance(5*time.Minute + time.Second)
	res, err = e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.ErrorIs(t, res.Reason, service.ErrKeyDisabled)
}

func TestRotate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	old, err := e.svc.Generate(ctx, "user-1", "deploy", service.GenerateOptions{
		Scopes:     domain.Scopes{{Resource: "billing", Action: "read"}, {Resource: "reports", Action: "export"}},
		ExpiryDays: 30,
	})
	require.NoError(t, err)

	res, err := e.svc.Validate(ctx, old.Secret)
	require.NoError(t, err)
	require.True(t, res.Valid)

	e.clock.Advance(10*24*time.Hour + time.Hour)
	now := e.clock.Now()

	rotated, err := e.svc.Rotate(ctx, old.Key.ID, "user-1")
	require.NoError(t, err)
	require.NotEqual(t, old.Key.ID, rotated.Key.ID)
	require.NotEqual(t, old.Secret, rotated.Secret)
	require.Equal(t, "deploy (Rotated)", rotated.Key.Name)
	require.Equal(t, old.Key.Scopes, rotated.Key.Scopes)

	// 19 days and 23 hours remained, rounded up.
	require.Equal(t, now.Add(20*24*time.Hour), *rotated.Key.ExpiresAt)
	require.False(t, rotated.Key.ExpiresAt.Before(now.Add(24*time.Hour)))

	res, err = e.svc.Validate(ctx, old.Secret)
	require.NoError(t, err)
	require.ErrorIs(t, res.Reason, service.ErrKeyDisabled)

	res, err = e.svc.Validate(ctx, rotated.Secret)
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.Equal(t, old.Key.Scopes, res.Key.Scopes)
}

func TestRotate_Retry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	old := e.generate(t, "user-1", billingRead())

	first, err := e.svc.Rotate(ctx, old.Key.ID, "")
	require.NoError(t, err)
	second, err := e.svc.Rotate(ctx, old.Key.ID, "")
	require.NoError(t, err, "rotating a deactivated key still yields a key")
	require.NotEqual(t, first.Key.ID, second.Key.ID)
}

func TestRotate_Edges(t *testing.T) {
	ctx := context.Background()

	t.Run("expired key gets one day", func(t *testing.T) {
		e := newEnv(t)
		gen, err := e.svc.Generate(ctx, "u", "k", service.GenerateOptions{Scopes: billingRead(), ExpiryDays: 1})
		require.NoError(t, err)

		e.clock.Advance(72 * time.Hour)
		rotated, err := e.svc.Rotate(ctx, gen.Key.ID, "u")
		require.NoError(t, err)
		require.Equal(t, e.clock.Now().Add(24*time.Hour), *rotated.Key.ExpiresAt)
	})

	t.Run("unrestricted scopes stay nil", func(t *testing.T) {
		e := newEnv(t, func(s *service.KeyService) { s.AllowUnrestricted = true })
		gen := e.generate(t, "u", nil)

		// Rotation keeps legacy keys usable even once new ones must be scoped.
		e.svc.AllowUnrestricted = false
		rotated, err := e.svc.Rotate(ctx, gen.Key.ID, "u")
		require.NoError(t, err)
		require.Nil(t, rotated.Key.Scopes)
	})

	t.Run("at quota", func(t *testing.T) {
		e := newEnv(t, func(s *service.KeyService) { s.MaxKeysPerOwner = 1 })
		gen := e.generate(t, "u", billingRead())

		_, err := e.svc.Rotate(ctx, gen.Key.ID, "u")
		require.NoError(t, err, "the replaced key does not count against the rotation")
	})

	t.Run("long names are trimmed", func(t *testing.T) {
		e := newEnv(t)
		gen, err := e.svc.Generate(ctx, "u", strings.Repeat("n", 100), service.GenerateOptions{Scopes: billingRead()})
		require.NoError(t, err)

		rotated, err := e.svc.Rotate(ctx, gen.Key.ID, "u")
		require.NoError(t, err)
		require.Len(t, rotated.Key.Name, 100)
	})

	t.Run("ownership", func(t *testing.T) {
		e := newEnv(t)
		gen := e.generate(t, "u", billingRead())

		_, err := e.svc.Rotate(ctx, gen.Key.ID, "intruder")
		require.ErrorIs(t, err, service.ErrPermissionDenied)
		_, err = e.svc.Rotate(ctx, "missing", "u")
		require.ErrorIs(t, err, service.ErrKeyNotFound)
	})
}

func TestRotate_QuotaBound(t *testing.T) {
	e := newEnv(t, func(s *service.KeyService) { s.MaxKeysPerOwner = 2 })
	ctx := context.Background()

	first := e.generate(t, "u", billingRead())
	e.generate(t, "u", billingRead())
	_, err := e.svc.Generate(ctx, "u", "third", service.GenerateOptions{Scopes: billingRead()})
	require.ErrorIs(t, err, service.ErrQuotaExceeded)

	_, err = e.svc.Rotate(ctx, first.Key.ID, "u")
	require.NoError(t, err)

	// Rotating the now revoked key again would mint keys without bound.
	for range 3 {
		_, err = e.svc.Rotate(ctx, first.Key.ID, "u")
		require.ErrorIs(t, err, service.ErrQuotaExceeded)
	}

	keys, err := e.svc.ListForOwner(ctx, "u")
	require.NoError(t, err)
	require.Len(t, keys, 3)

	active := 0
	for _, k := range keys {
		if k.IsActive {
			active++
		}
	}
	require.Equal(t, 2, active)
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gen := e.generate(t, "user-1", billingRead())

	require.True(t, e.svc.CheckScope(ctx, gen.Key, "billing", "read"))

	name := "renamed"
	scopes := domain.Scopes{{Resource: "billing", Action: "write"}}
	updated, err := e.svc.Update(ctx, gen.Key.ID, "user-1", service.UpdateRequest{Name: &name, Scopes: &scopes})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
	require.Equal(t, scopes, updated.Scopes)

	res, err := e.svc.Validate(ctx, gen.Secret)
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.False(t, e.svc.CheckScope(ctx, res.Key, "billing", "read"), "stale scope decision was dropped")
	require.True(t, e.svc.CheckScope(ctx, res.Key, "billing", "write"))

	t.Run("expiry", func(t *testing.T) {
		past := e.clock.Now().Add(-time.Hour)
		_, err := e.svc.Update(ctx, gen.Key.ID, "user-1", service.UpdateRequest{ExpiresAt: &past})
		require.ErrorIs(t, err, service.ErrInvalidExpiry)

		updated, err := e.svc.Update(ctx, gen.Key.ID, "user-1", service.UpdateRequest{ClearExpiry: true})
		require.NoError(t, err)
		require.Nil(t, updated.ExpiresAt)
	})

	t.Run("rejects", func(t *testing.T) {
		blank := " "
		_, err := e.svc.Update(ctx, gen.Key.ID, "user-1", service.UpdateRequest{Name: &blank})
		require.ErrorIs(t, err, service.ErrInvalidName)

		none := domain.Scopes{}
		_, err = e.svc.Update(ctx, gen.Key.ID, "user-1", service.UpdateRequest{Scopes: &none})
		require.ErrorIs(t, err, service.ErrInvalidScopes)

		_, err = e.svc.Update(ctx, gen.Key.ID, "user-2", service.UpdateRequest{Name: &name})
		require.ErrorIs(t, err, service.ErrPermissionDenied)

		_, err = e.svc.Update(ctx, "missing", "", service.UpdateRequest{Name: &name})
		require.ErrorIs(t, err, service.ErrKeyNotFound)
	})

	t.Run("empty patch", func(t *testing.T) {
		got, err := e.svc.Update(ctx, gen.Key.ID, "user-1", service.UpdateRequest{})
		require.NoError(t, err)
		require.Equal(t, "renamed", got.Name)
	})
	t.Run("empty scopes with unrestricted allowed", func(t *testing.T) {
		e := newEnv(t, func(s *service.KeyService) { s.AllowUnrestricted = true })
		gen := e.generate(t, "user-1", billingRead())

		none := domain.Scopes{}
		_, err := e.svc.Update(ctx, gen.Key.ID, "user-1", service.UpdateRequest{Scopes: &none})
		require.ErrorIs(t, err, service.ErrInvalidScopes)

		got, err := e.svc.Get(ctx, gen.Key.ID, "user-1")
		require.NoError(t, err)
		require.Equal(t, billingRead(), got.Scopes)
		require.False(t, e.svc.CheckScope(ctx, gen.Key, "billing", "write"))
	})
}
