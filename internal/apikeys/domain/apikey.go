package domain

import (
	"time"

	"github.com/aussiebroadwan/apikeys/pkg/keyx"
)

// APIKey is the stored key record. The secret itself is never stored, only
// KeyHash, which must not leave the service.
type APIKey struct {
	ID         string
	OwnerID    string
	Name       string
	KeyHash    string `json:"-"`
	KeyPrefix  string
	Scopes     Scopes // nil = unrestricted (legacy)
	LastUsedAt *time.Time
	LastUsedIP string
	ExpiresAt  *time.Time // nil = never
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExpiredAt reports whether the key is past its expiry at now. Expiry is
// derived, it is never written back to the record.
func (k APIKey) ExpiredAt(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// Preview is the display-safe form of the key.
func (k APIKey) Preview() string { return keyx.Preview(k.KeyPrefix) }

// Snapshot projects the record into its cacheable form.
func (k APIKey) Snapshot() KeySnapshot {
	return KeySnapshot{
		ID:         k.ID,
		OwnerID:    k.OwnerID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		Scopes:     k.Scopes.Clone(),
		LastUsedAt: k.LastUsedAt,
		LastUsedIP: k.LastUsedIP,
		ExpiresAt:  k.ExpiresAt,
		IsActive:   k.IsActive,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  k.UpdatedAt,
	}
}

// Summary builds the owner listing row.
func (k APIKey) Summary() KeySummary {
	return KeySummary{KeySnapshot: k.Snapshot(), Preview: k.Preview()}
}

// KeySnapshot is an APIKey without its hash. It is what the validation
// cache holds and what callers get back from the service.
type KeySnapshot struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     Scopes     `json:"scopes"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	LastUsedIP string     `json:"last_used_ip,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (s KeySnapshot) ExpiredAt(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// KeySummary is one row of an owner's key listing.
type KeySummary struct {
	KeySnapshot
	Preview string `json:"preview"`
}

// APIKeyPatch lists the fields an update may change. Nil fields are left
// alone.
type APIKeyPatch struct {
	Name        *string
	Scopes      *Scopes
	ExpiresAt   *time.Time
	ClearExpiry bool
	IsActive    *bool
	LastUsedAt  *time.Time
	LastUsedIP  *string
}

// Empty reports whether the patch changes nothing.
func (p APIKeyPatch) Empty() bool {
	return p.Name == nil && p.Scopes == nil && p.ExpiresAt == nil && !p.ClearExpiry &&
		p.IsActive == nil && p.LastUsedAt == nil && p.LastUsedIP == nil
}

// Apply returns k with the patch applied.
func (p APIKeyPatch) Apply(k APIKey) APIKey {
	if p.Name != nil {
		k.Name = *p.Name
	}
	if p.Scopes != nil {
		k.Scopes = p.Scopes.Clone()
	}
	if p.ClearExpiry {
		k.ExpiresAt = nil
	} else if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		k.ExpiresAt = &t
	}
	if p.IsActive != nil {
		k.IsActive = *p.IsActive
	}
	if p.LastUsedAt != nil {
		t := *p.LastUsedAt
		k.LastUsedAt = &t
	}
	if p.LastUsedIP != nil {
		k.LastUsedIP = *p.LastUsedIP
	}
	return k
}
