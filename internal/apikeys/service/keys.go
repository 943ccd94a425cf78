package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/cache"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/metrics"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store"
	"github.com/aussiebroadwan/apikeys/pkg/cryptox"
	"github.com/aussiebroadwan/apikeys/pkg/idx"
	"github.com/aussiebroadwan/apikeys/pkg/keyx"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"
)

const (
	DefaultMaxKeysPerOwner = 10
	DefaultExpiryDays      = 90
	MaxNameLength          = 100
	maxPrefixAttempts      = 3
	rotatedSuffix          = " (Rotated)"
	day                    = 24 * time.Hour
)

var noopKeyCache = cache.NewKeyCache(nil, cache.TTLs{}, nil)

// KeyService issues, validates, revokes and rotates API keys.
//
// The store is the source of truth. Cache holds derived state only and the
// service behaves the same, if slower, with a nil or failing cache.
type KeyService struct {
	Store   store.Store
	Codec   *keyx.Codec
	Cache   *cache.KeyCache
	Metrics *metrics.Metrics

	// IDs and Now are injectable for tests.
	IDs idx.Source
	Now func() time.Time

	MaxKeysPerOwner   int
	DefaultExpiryDays int

	// AllowUnrestricted lets new keys be issued without scopes. Such keys are
	// stored with a nil scope list and pass every scope check.
	AllowUnrestricted bool
}

// GenerateOptions are the optional inputs of Generate.
type GenerateOptions struct {
	Scopes domain.Scopes
	// ExpiryDays of zero picks the default window.
	ExpiryDays int
	// IsActive defaults to true.
	IsActive *bool
}

// GeneratedKey is returned exactly once per key. Secret is the full key and
// is never stored.
type GeneratedKey struct {
	Key     domain.KeySnapshot `json:"key"`
	Secret  string             `json:"secret"`
	Preview string             `json:"preview"`
}

// UpdateRequest lists the fields an owner may change. Nil fields are left
// alone.
type UpdateRequest struct {
	Name        *string
	Scopes      *domain.Scopes
	ExpiresAt   *time.Time
	ClearExpiry bool
}

type draft struct {
	ownerID    string
	name       string
	scopes     domain.Scopes
	expiryDays int
	active     bool
}

// Generate creates a key for ownerID. The owner's total key count, revoked
// keys included, must stay below MaxKeysPerOwner.
func (s *KeyService) Generate(ctx context.Context, ownerID, name string, opts GenerateOptions) (GeneratedKey, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return GeneratedKey{}, ErrInvalidOwner
	}
	name, err := normalizeName(name)
	if err != nil {
		return GeneratedKey{}, err
	}
	scopes, err := s.normalizeScopes(opts.Scopes)
	if err != nil {
		return GeneratedKey{}, err
	}

	days := opts.ExpiryDays
	switch {
	case days < 0:
		return GeneratedKey{}, ErrInvalidExpiry
	case days == 0:
		days = s.defaultExpiryDays()
	}

	active := true
	if opts.IsActive != nil {
		active = *opts.IsActive
	}

	return s.create(ctx, draft{
		ownerID:    ownerID,
		name:       name,
		scopes:     scopes,
		expiryDays: days,
		active:     active,
	}, s.maxKeys())
}

// create persists a fresh key once the owner holds fewer than limit keys.
// The quota check and insert share a transaction, and a clashing prefix is
// retried with new key material.
func (s *KeyService) create(ctx context.Context, d draft, limit int) (GeneratedKey, error) {
	l := slogx.FromContext(ctx)

	for attempt := 1; ; attempt++ {
		gen, err := s.Codec.Generate()
		if err != nil {
			l.Error("failed to generate key material", "error", err)
			return GeneratedKey{}, fmt.Errorf("generate key material: %w", err)
		}

		now := s.now()
		expires := now.Add(time.Duration(d.expiryDays) * day)
		rec := domain.APIKey{
			ID:        s.newID().String(),
			OwnerID:   d.ownerID,
			Name:      d.name,
			KeyHash:   gen.Hash,
			KeyPrefix: gen.Prefix,
			Scopes:    d.scopes.Clone(),
			ExpiresAt: &expires,
			IsActive:  d.active,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			n, err := tx.APIKeys().CountByOwner(ctx, rec.OwnerID)
			if err != nil {
				return fmt.Errorf("count owner keys: %w", err)
			}
			if n >= limit {
				return ErrQuotaExceeded
			}
			return tx.APIKeys().Create(ctx, rec)
		})
		switch {
		case err == nil:
		case errors.Is(err, store.ErrAlreadyExists) && attempt < maxPrefixAttempts:
			l.Warn("key prefix collision, regenerating", "attempt", attempt)
			continue
		case errors.Is(err, ErrQuotaExceeded):
			l.Info("key quota reached", "owner_id", rec.OwnerID, "limit", limit)
			return GeneratedKey{}, err
		default:
			l.Error("failed to create api key", "error", err, "owner_id", rec.OwnerID)
			return GeneratedKey{}, fmt.Errorf("create api key: %w", err)
		}

		s.kc().DeleteListing(ctx, rec.OwnerID)

		s.Metrics.RecordLifecycle("key_generated")
		l.Info("api key created",
			"event", "key_generated",
			"key_id", rec.ID,
			"owner_id", rec.OwnerID,
			"prefix", rec.KeyPrefix,
			"audit", cryptox.AuditFingerprint("create", rec.KeyPrefix, rec.OwnerID),
		)

		return GeneratedKey{Key: rec.Snapshot(), Secret: gen.Key, Preview: gen.Preview}, nil
	}
}

// Get returns one key. A non-empty requester must own it.
func (s *KeyService) Get(ctx context.Context, keyID, requester string) (domain.KeySummary, error) {
	k, err := s.owned(ctx, s.Store, keyID, requester)
	if err != nil {
		return domain.KeySummary{}, err
	}
	return k.Summary(), nil
}

// ListForOwner returns the owner's keys, newest first, with previews.
func (s *KeyService) ListForOwner(ctx context.Context, ownerID string) ([]domain.KeySummary, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}

	kc := s.kc()
	if list, ok := kc.GetListing(ctx, ownerID); ok {
		if list == nil {
			list = []domain.KeySummary{}
		}
		return list, nil
	}

	keys, err := s.Store.APIKeys().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	out := make([]domain.KeySummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Summary())
	}
	kc.SetListing(ctx, ownerID, out)
	return out, nil
}

// Update changes name, scopes or expiry. Activation cannot be changed here,
// revocation is terminal. A new scope list must hold at least one scope.
func (s *KeyService) Update(ctx context.Context, keyID, requester string, req UpdateRequest) (domain.KeySummary, error) {
	l := slogx.FromContext(ctx)

	var patch domain.APIKeyPatch
	if req.Name != nil {
		name, err := normalizeName(*req.Name)
		if err != nil {
			return domain.KeySummary{}, err
		}
		patch.Name = &name
	}
	if req.Scopes != nil {
		// An update never lifts a key to unrestricted.
		if len(*req.Scopes) == 0 {
			return domain.KeySummary{}, fmt.Errorf("%w: at least one scope is required", ErrInvalidScopes)
		}
		scopes, err := s.normalizeScopes(*req.Scopes)
		if err != nil {
			return domain.KeySummary{}, err
		}
		patch.Scopes = &scopes
	}

	now := s.now()
	switch {
	case req.ClearExpiry:
		patch.ClearExpiry = true
	case req.ExpiresAt != nil:
		if !req.ExpiresAt.After(now) {
			return domain.KeySummary{}, ErrInvalidExpiry
		}
		t := req.ExpiresAt.UTC()
		patch.ExpiresAt = &t
	}

	var updated domain.APIKey
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		k, err := s.owned(ctx, tx, keyID, requester)
		if err != nil {
			return err
		}
		if patch.Empty() {
			updated = k
			return nil
		}
		updated, err = tx.APIKeys().Update(ctx, k.ID, patch, now)
		return mapStoreErr(err)
	})
	if err != nil {
		return domain.KeySummary{}, err
	}

	s.kc().InvalidateKey(ctx, updated.ID, updated.OwnerID)

	l.Info("api key updated", "key_id", updated.ID, "owner_id", updated.OwnerID)
	return updated.Summary(), nil
}

// Revoke deactivates a key. Revoking a revoked key succeeds.
func (s *KeyService) Revoke(ctx context.Context, keyID, requester string) error {
	l := slogx.FromContext(ctx)

	k, err := s.owned(ctx, s.Store, keyID, requester)
	if err != nil {
		return err
	}

	if k.IsActive {
		if err := s.deactivate(ctx, k.ID); err != nil {
			l.Error("failed to revoke api key", "error", err, "key_id", k.ID)
			return err
		}
	}

	s.kc().InvalidateKey(ctx, k.ID, k.OwnerID)

	s.Metrics.RecordLifecycle("key_revoked")
	l.Info("api key revoked",
		"event", "key_revoked",
		"key_id", k.ID,
		"owner_id", k.OwnerID,
		"revoked_by", actor(requester),
		"audit", cryptox.AuditFingerprint("revoke", k.KeyPrefix, k.OwnerID),
	)
	return nil
}

// Rotate deactivates a key and issues its replacement with the same scopes
// and the old key's remaining lifetime (at least one day). It is safe to
// retry: an already deactivated key still yields a new one.
//
// The old record is treated as replaced, so rotation may take the owner one
// key past MaxKeysPerOwner but no further.
func (s *KeyService) Rotate(ctx context.Context, keyID, requester string) (GeneratedKey, error) {
	l := slogx.FromContext(ctx)

	old, err := s.owned(ctx, s.Store, keyID, requester)
	if err != nil {
		return GeneratedKey{}, err
	}

	if old.IsActive {
		if err := s.deactivate(ctx, old.ID); err != nil {
			l.Error("failed to deactivate rotated key", "error", err, "key_id", old.ID)
			return GeneratedKey{}, err
		}
	}
	s.kc().InvalidateKey(ctx, old.ID, old.OwnerID)

	now := s.now()
	days := s.defaultExpiryDays()
	if old.ExpiresAt != nil {
		days = max(1, int(math.Ceil(old.ExpiresAt.Sub(now).Hours()/24)))
	}

	gen, err := s.create(ctx, draft{
		ownerID:    old.OwnerID,
		name:       rotatedName(old.Name),
		scopes:     old.Scopes.Clone(),
		expiryDays: days,
		active:     true,
	}, s.maxKeys()+1)
	if err != nil {
		return GeneratedKey{}, err
	}

	s.Metrics.RecordLifecycle("key_rotated")
	l.Info("api key rotated",
		"event", "key_rotated",
		"old_key_id", old.ID,
		"new_key_id", gen.Key.ID,
		"owner_id", old.OwnerID,
		"rotated_by", actor(requester),
	)
	return gen, nil
}

func (s *KeyService) deactivate(ctx context.Context, keyID string) error {
	inactive := false
	_, err := s.Store.APIKeys().Update(ctx, keyID, domain.APIKeyPatch{IsActive: &inactive}, s.now())
	return mapStoreErr(err)
}

// owned loads a key through st and enforces ownership when requester is set.
func (s *KeyService) owned(ctx context.Context, st store.Store, keyID, requester string) (domain.APIKey, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return domain.APIKey{}, ErrKeyNotFound
	}
	k, err := st.APIKeys().GetByID(ctx, keyID)
	if err != nil {
		return domain.APIKey{}, mapStoreErr(err)
	}
	if requester != "" && requester != k.OwnerID {
		slogx.FromContext(ctx).Warn("api key ownership mismatch", "key_id", k.ID, "requester", requester)
		return domain.APIKey{}, ErrPermissionDenied
	}
	return k, nil
}

func (s *KeyService) normalizeScopes(in domain.Scopes) (domain.Scopes, error) {
	scopes, err := in.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScopes, err)
	}
	if len(scopes) == 0 {
		if !s.AllowUnrestricted {
			return nil, fmt.Errorf("%w: at least one scope is required", ErrInvalidScopes)
		}
		return nil, nil
	}
	return scopes, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func rotatedName(name string) string {
	r := []rune(name + rotatedSuffix)
	if len(r) > MaxNameLength {
		r = r[:MaxNameLength]
	}
	return strings.TrimSpace(string(r))
}

func actor(requester string) string {
	if requester == "" {
		return "system"
	}
	return requester
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrKeyNotFound
	default:
		return fmt.Errorf("api key store: %w", err)
	}
}

func (s *KeyService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *KeyService) newID() idx.ID {
	if s.IDs != nil {
		return s.IDs.New()
	}
	return idx.New()
}

func (s *KeyService) kc() *cache.KeyCache {
	if s.Cache != nil {
		return s.Cache
	}
	return noopKeyCache
}

func (s *KeyService) maxKeys() int {
	if s.MaxKeysPerOwner > 0 {
		return s.MaxKeysPerOwner
	}
	return DefaultMaxKeysPerOwner
}

func (s *KeyService) defaultExpiryDays() int {
	if s.DefaultExpiryDays > 0 {
		return s.DefaultExpiryDays
	}
	return DefaultExpiryDays
}
