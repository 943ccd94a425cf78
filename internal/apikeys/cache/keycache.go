package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/metrics"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"
)

// Categories double as tag names and metric labels.
const (
	CategoryValidation = "validation"
	CategoryScopes     = "scopes"
	CategoryListing    = "listing"
)

// TTLs are the lifetimes of each entry category.
type TTLs struct {
	Validation time.Duration
	Scope      time.Duration
	Listing    time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Validation: 5 * time.Minute,
		Scope:      5 * time.Minute,
		Listing:    time.Minute,
	}
}

// Longest returns the largest of the three lifetimes.
func (t TTLs) Longest() time.Duration {
	return max(t.Validation, t.Scope, t.Listing)
}

func ValidationKey(prefix string) string { return "apikey:validation:" + prefix }

// ScopeKey length-prefixes the id and resource, since resources and actions
// may themselves contain ':'.
func ScopeKey(keyID, resource, action string) string {
	return "apikey:scope:" + strconv.Itoa(len(keyID)) + ":" + keyID + ":" +
		strconv.Itoa(len(resource)) + ":" + resource + ":" + action
}

func ListingKey(ownerID string) string { return "apikey:user:" + ownerID + ":keys" }

func KeyTag(keyID string) string    { return "key:" + keyID }
func OwnerTag(ownerID string) string { return "user:" + ownerID }

// KeyCache is the typed view the key service uses. Backend failures are
// logged and reported as misses, so the cache can never fail a request.
type KeyCache struct {
	c       Cache
	ttl     TTLs
	metrics *metrics.Metrics
}

// NewKeyCache wraps c. A nil c caches nothing and zero TTLs fall back to
// DefaultTTLs.
func NewKeyCache(c Cache, ttl TTLs, m *metrics.Metrics) *KeyCache {
	if c == nil {
		c = Noop{}
	}
	def := DefaultTTLs()
	if ttl.Validation <= 0 {
		ttl.Validation = def.Validation
	}
	if ttl.Scope <= 0 {
		ttl.Scope = def.Scope
	}
	if ttl.Listing <= 0 {
		ttl.Listing = def.Listing
	}
	return &KeyCache{c: c, ttl: ttl, metrics: m}
}

func (kc *KeyCache) Backend() Cache { return kc.c }

func (kc *KeyCache) GetValidation(ctx context.Context, prefix string) (domain.KeySnapshot, bool) {
	var snap domain.KeySnapshot
	ok := kc.get(ctx, CategoryValidation, ValidationKey(prefix), &snap)
	return snap, ok
}

func (kc *KeyCache) SetValidation(ctx context.Context, snap domain.KeySnapshot) {
	kc.set(ctx, CategoryValidation, ValidationKey(snap.KeyPrefix), snap, kc.ttl.Validation,
		KeyTag(snap.ID), OwnerTag(snap.OwnerID))
}

func (kc *KeyCache) DeleteValidation(ctx context.Context, prefix string) {
	kc.delete(ctx, ValidationKey(prefix))
}

// GetScope returns a cached decision. ok is false on a miss.
func (kc *KeyCache) GetScope(ctx context.Context, keyID, resource, action string) (allowed, ok bool) {
	ok = kc.get(ctx, CategoryScopes, ScopeKey(keyID, resource, action), &allowed)
	return allowed, ok
}

func (kc *KeyCache) SetScope(ctx context.Context, keyID, ownerID, resource, action string, allowed bool) {
	kc.set(ctx, CategoryScopes, ScopeKey(keyID, resource, action), allowed, kc.ttl.Scope,
		KeyTag(keyID), OwnerTag(ownerID))
}

func (kc *KeyCache) GetListing(ctx context.Context, ownerID string) ([]domain.KeySummary, bool) {
	var list []domain.KeySummary
	ok := kc.get(ctx, CategoryListing, ListingKey(ownerID), &list)
	return list, ok
}

func (kc *KeyCache) SetListing(ctx context.Context, ownerID string, list []domain.KeySummary) {
	kc.set(ctx, CategoryListing, ListingKey(ownerID), list, kc.ttl.Listing, OwnerTag(ownerID))
}

func (kc *KeyCache) DeleteListing(ctx context.Context, ownerID string) {
	kc.delete(ctx, ListingKey(ownerID))
}

// InvalidateKey drops every entry derived from the key, plus the owner's
// listing.
func (kc *KeyCache) InvalidateKey(ctx context.Context, keyID, ownerID string) {
	if err := kc.c.InvalidateTags(ctx, KeyTag(keyID), OwnerTag(ownerID)); err != nil {
		slogx.FromContext(ctx).Warn("cache invalidation failed",
			"key_id", keyID,
			"owner_id", ownerID,
			"error", err,
		)
	}
}

func (kc *KeyCache) get(ctx context.Context, category, key string, dst any) bool {
	b, err := kc.c.Get(ctx, key)
	switch {
	case errors.Is(err, ErrMiss):
		kc.metrics.RecordCache(category, "miss")
		return false
	case err != nil:
		kc.metrics.RecordCache(category, "error")
		slogx.FromContext(ctx).Warn("cache read failed", "category", category, "error", err)
		return false
	}

	if err := json.Unmarshal(b, dst); err != nil {
		kc.metrics.RecordCache(category, "error")
		slogx.FromContext(ctx).Warn("dropping undecodable cache entry", "category", category, "error", err)
		kc.delete(ctx, key)
		return false
	}
	kc.metrics.RecordCache(category, "hit")
	return true
}

func (kc *KeyCache) set(ctx context.Context, category, key string, v any, ttl time.Duration, tags ...string) {
	b, err := json.Marshal(v)
	if err != nil {
		slogx.FromContext(ctx).Warn("cache encode failed", "category", category, "error", err)
		return
	}
	tags = append(tags, category)
	if err := kc.c.Set(ctx, key, b, ttl, tags...); err != nil {
		slogx.FromContext(ctx).Warn("cache write failed", "category", category, "error", err)
	}
}

func (kc *KeyCache) delete(ctx context.Context, key string) {
	if err := kc.c.Delete(ctx, key); err != nil {
		slogx.FromContext(ctx).Warn("cache delete failed", "error", err)
	}
}
