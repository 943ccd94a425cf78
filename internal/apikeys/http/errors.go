package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/pkg/apikeysdk"
	"github.com/aussiebroadwan/apikeys/pkg/httpx"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"
)

// writeServiceError maps a KeyService error onto its HTTP response. Faults
// are logged with msg and reported as a generic server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	code := service.Code(err)

	var status int
	switch {
	case errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidOwner),
		errors.Is(err, service.ErrInvalidScopes),
		errors.Is(err, service.ErrInvalidExpiry):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrKeyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrInsufficientScope):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrQuotaExceeded):
		status = http.StatusConflict
	case service.IsAuthFailure(err):
		status = http.StatusUnauthorized
	default:
		slogx.FromContext(r.Context()).Error(msg, "error", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	httpx.NewAPIError(status, code, err.Error()).WriteError(w)
}

func keyInfo(k domain.KeySummary) apikeysdk.KeyInfo {
	return apikeysdk.KeyInfo{
		ID:         k.ID,
		OwnerID:    k.OwnerID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		Preview:    k.Preview,
		Scopes:     k.Scopes.Strings(),
		LastUsedAt: k.LastUsedAt,
		LastUsedIP: k.LastUsedIP,
		ExpiresAt:  k.ExpiresAt,
		IsActive:   k.IsActive,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  k.UpdatedAt,
	}
}

func snapshotInfo(k domain.KeySnapshot, preview string) apikeysdk.KeyInfo {
	return keyInfo(domain.KeySummary{KeySnapshot: k, Preview: preview})
}

func generatedResponse(g service.GeneratedKey) apikeysdk.GeneratedKeyResponse {
	return apikeysdk.GeneratedKeyResponse{
		Key:     snapshotInfo(g.Key, g.Preview),
		Secret:  g.Secret,
		Preview: g.Preview,
	}
}
