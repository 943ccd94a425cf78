package authn

import (
	"context"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
)

type ctxKey struct{}

// Identity describes the key a request authenticated with.
type Identity struct {
	KeyID   string        `json:"key_id"`
	OwnerID string        `json:"owner_id"`
	Name    string        `json:"name"`
	Prefix  string        `json:"key_prefix"`
	Scopes  domain.Scopes `json:"scopes"`
}

func withKey(ctx context.Context, key domain.KeySnapshot) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

// KeyFromContext returns the validated key snapshot.
func KeyFromContext(ctx context.Context) (domain.KeySnapshot, bool) {
	k, ok := ctx.Value(ctxKey{}).(domain.KeySnapshot)
	return k, ok
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	k, ok := KeyFromContext(ctx)
	if !ok {
		return Identity{}, false
	}
	return Identity{
		KeyID:   k.ID,
		OwnerID: k.OwnerID,
		Name:    k.Name,
		Prefix:  k.KeyPrefix,
		Scopes:  k.Scopes.Clone(),
	}, true
}
