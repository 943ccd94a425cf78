package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"
)

// ValidationResult is the outcome of Validate. Reason is set when Valid is
// false and is one of the authentication sentinels.
type ValidationResult struct {
	Valid  bool
	Key    domain.KeySnapshot
	Reason error
}

func invalid(reason error) ValidationResult {
	return ValidationResult{Reason: reason}
}

// Validate checks a presented key. The returned error is reserved for
// repository failures; a rejected key is reported through the result.
//
// The cache never holds the hash, so a successful validation always reads
// the store once. A cached snapshot only short-circuits keys that are
// already known to be disabled or expired.
func (s *KeyService) Validate(ctx context.Context, candidate string) (ValidationResult, error) {
	start := time.Now()
	res, hit, err := s.validate(ctx, candidate)

	outcome := "valid"
	switch {
	case err != nil:
		outcome = "repository_error"
	case !res.Valid:
		outcome = Code(res.Reason)
	}
	s.Metrics.RecordValidation(outcome, hit, time.Since(start))

	if !res.Valid && err == nil {
		slogx.FromContext(ctx).Debug("api key rejected", "reason", outcome)
	}
	return res, err
}

func (s *KeyService) validate(ctx context.Context, candidate string) (ValidationResult, bool, error) {
	parsed := s.Codec.Parse(candidate)
	if !parsed.Valid {
		return invalid(ErrMalformedKey), false, nil
	}

	kc := s.kc()
	now := s.now()

	snap, hit := kc.GetValidation(ctx, parsed.Prefix)
	if hit {
		if !snap.IsActive {
			kc.DeleteValidation(ctx, parsed.Prefix)
			return invalid(ErrKeyDisabled), hit, nil
		}
		if snap.ExpiredAt(now) {
			kc.DeleteValidation(ctx, parsed.Prefix)
			return invalid(ErrKeyExpired), hit, nil
		}
	}

	rec, err := s.Store.APIKeys().GetByPrefix(ctx, parsed.Prefix)
	if errors.Is(err, store.ErrNotFound) {
		if hit {
			kc.DeleteValidation(ctx, parsed.Prefix)
		}
		return invalid(ErrKeyNotFound), hit, nil
	}
	if err != nil {
		slogx.FromContext(ctx).Error("api key lookup failed", "error", err, "prefix", parsed.Prefix)
		return ValidationResult{}, hit, fmt.Errorf("lookup api key: %w", err)
	}

	if !rec.IsActive {
		if hit {
			kc.DeleteValidation(ctx, parsed.Prefix)
		}
		return invalid(ErrKeyDisabled), hit, nil
	}
	if rec.ExpiredAt(now) {
		if hit {
			kc.DeleteValidation(ctx, parsed.Prefix)
		}
		return invalid(ErrKeyExpired), hit, nil
	}
	if !s.Codec.Verify(candidate, rec.KeyHash) {
		return invalid(ErrInvalidSecret), hit, nil
	}

	fresh := rec.Snapshot()
	if !hit {
		kc.SetValidation(ctx, fresh)
	}
	return ValidationResult{Valid: true, Key: fresh}, hit, nil
}

// CheckScope reports whether key may perform action on resource. Keys with
// a nil scope list are unrestricted.
func (s *KeyService) CheckScope(ctx context.Context, key domain.KeySnapshot, resource, action string) bool {
	if key.Scopes.Unrestricted() {
		return true
	}
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		return false
	}

	kc := s.kc()
	if allowed, ok := kc.GetScope(ctx, key.ID, resource, action); ok {
		return allowed
	}

	allowed := key.Scopes.Grants(resource, action)
	kc.SetScope(ctx, key.ID, key.OwnerID, resource, action, allowed)
	return allowed
}

// Authorize is CheckScope returning ErrInsufficientScope on denial.
func (s *KeyService) Authorize(ctx context.Context, key domain.KeySnapshot, resource, action string) error {
	if !s.CheckScope(ctx, key, resource, action) {
		slogx.FromContext(ctx).Info("api key scope denied",
			"key_id", key.ID,
			"resource", resource,
			"action", action,
		)
		return ErrInsufficientScope
	}
	return nil
}

// RecordUsage stamps the key's last use. ip may be empty.
func (s *KeyService) RecordUsage(ctx context.Context, keyID, ip string) error {
	now := s.now()
	patch := domain.APIKeyPatch{LastUsedAt: &now}
	if ip = strings.TrimSpace(ip); ip != "" {
		patch.LastUsedIP = &ip
	}

	if _, err := s.Store.APIKeys().Update(ctx, keyID, patch, now); err != nil {
		return mapStoreErr(err)
	}

	s.Metrics.RecordLifecycle("key_used")
	slogx.FromContext(ctx).Debug("api key used", "event", "key_used", "key_id", keyID)
	return nil
}
