package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/pkg/apikeysdk"
	"github.com/aussiebroadwan/apikeys/pkg/httpx"
	"github.com/aussiebroadwan/apikeys/pkg/jwtx"
)

// KeysHandler serves the key management endpoints. The management token's
// subject owns the keys it manages; admin tokens may act on any owner.
type KeysHandler struct {
	Keys *service.KeyService
}

// caller resolves who a management request acts for. owner is the owner the
// request targets and requester is what ownership is checked against, empty
// for admins.
func caller(r *http.Request, requestedOwner string) (owner, requester string, err error) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		return "", "", service.ErrPermissionDenied
	}
	requestedOwner = strings.TrimSpace(requestedOwner)

	if claims.HasScope(jwtx.ScopeAdmin) {
		if requestedOwner == "" {
			requestedOwner = claims.Subject
		}
		return requestedOwner, "", nil
	}
	if requestedOwner != "" && requestedOwner != claims.Subject {
		return "", "", service.ErrPermissionDenied
	}
	return claims.Subject, claims.Subject, nil
}

func parseScopes(raw []string) (domain.Scopes, error) {
	scopes, err := domain.ParseScopes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrInvalidScopes, err)
	}
	return scopes, nil
}

// HandleGenerate handles POST /v1/keys
//
//	@Summary		Generate API Key
//	@Description	Issues a new API key. The secret is returned once and cannot be retrieved again.
//	@Description	Admin tokens may issue keys for another owner with owner_id.
//	@Tags			Keys
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		apikeysdk.GenerateKeyRequest	true	"Key name, scopes and expiry"
//	@Success		201		{object}	apikeysdk.GeneratedKeyResponse	"key, secret, preview"
//	@Failure		400		{object}	apikeysdk.ErrorResponse			"error, error_description"
//	@Failure		401		{object}	apikeysdk.ErrorResponse			"error, error_description"
//	@Failure		403		{object}	apikeysdk.ErrorResponse			"error, error_description"
//	@Failure		409		{object}	apikeysdk.ErrorResponse			"quota_exceeded"
//	@Failure		500		{object}	apikeysdk.ErrorResponse			"error, error_description"
//	@Router			/v1/keys [post].
func (h *KeysHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req apikeysdk.GenerateKeyRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.ErrInvalidBody.WriteError(w)
		return
	}

	owner, _, err := caller(r, req.OwnerID)
	if err != nil {
		writeServiceError(w, r, err, "failed to resolve caller")
		return
	}
	scopes, err := parseScopes(req.Scopes)
	if err != nil {
		writeServiceError(w, r, err, "failed to parse scopes")
		return
	}

	gen, err := h.Keys.Generate(r.Context(), owner, req.Name, service.GenerateOptions{
		Scopes:     scopes,
		ExpiryDays: req.ExpiryDays,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to generate api key")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, generatedResponse(gen))
}

// HandleList handles GET /v1/keys
//
//	@Summary		List API Keys
//	@Description	Lists the caller's keys, newest first. Admin tokens may list another owner with owner_id.
//	@Tags			Keys
//	@Produce		json
//	@Security		BearerAuth
//	@Param			owner_id	query		string						false	"Owner to list (admin only)"
//	@Success		200			{object}	apikeysdk.ListKeysResponse	"keys"
//	@Failure		401			{object}	apikeysdk.ErrorResponse		"error, error_description"
//	@Failure		403			{object}	apikeysdk.ErrorResponse		"error, error_description"
//	@Failure		500			{object}	apikeysdk.ErrorResponse		"error, error_description"
//	@Router			/v1/keys [get].
func (h *KeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, _, err := caller(r, r.URL.Query().Get("owner_id"))
	if err != nil {
		writeServiceError(w, r, err, "failed to resolve caller")
		return
	}

	keys, err := h.Keys.ListForOwner(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err, "failed to list api keys")
		return
	}

	out := apikeysdk.ListKeysResponse{Keys: make([]apikeysdk.KeyInfo, len(keys))}
	for i, k := range keys {
		out.Keys[i] = keyInfo(k)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/keys/{id}
//
//	@Summary		Get API Key
//	@Tags			Keys
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string					true	"Key ID (ULID)"
//	@Success		200	{object}	apikeysdk.KeyInfo		"key"
//	@Failure		401	{object}	apikeysdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	apikeysdk.ErrorResponse	"permission_denied"
//	@Failure		404	{object}	apikeysdk.ErrorResponse	"key_not_found"
//	@Router			/v1/keys/{id} [get].
func (h *KeysHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	_, requester, err := caller(r, "")
	if err != nil {
		writeServiceError(w, r, err, "failed to resolve caller")
		return
	}

	k, err := h.Keys.Get(r.Context(), r.PathValue("id"), requester)
	if err != nil {
		writeServiceError(w, r, err, "failed to get api key")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, keyInfo(k))
}

// HandleUpdate handles PATCH /v1/keys/{id}
//
//	@Summary		Update API Key
//	@Description	Changes a key's name, scopes or expiry. Omitted fields are left unchanged.
//	@Tags			Keys
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Key ID (ULID)"
//	@Param			request	body		apikeysdk.UpdateKeyRequest	true	"Fields to change"
//	@Success		200		{object}	apikeysdk.KeyInfo			"updated key"
//	@Failure		400		{object}	apikeysdk.ErrorResponse		"error, error_description"
//	@Failure		401		{object}	apikeysdk.ErrorResponse		"error, error_description"
//	@Failure		403		{object}	apikeysdk.ErrorResponse		"permission_denied"
//	@Failure		404		{object}	apikeysdk.ErrorResponse		"key_not_found"
//	@Router			/v1/keys/{id} [patch].
func (h *KeysHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req apikeysdk.UpdateKeyRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.ErrInvalidBody.WriteError(w)
		return
	}

	_, requester, err := caller(r, "")
	if err != nil {
		writeServiceError(w, r, err, "failed to resolve caller")
		return
	}

	upd := service.UpdateRequest{
		Name:        req.Name,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
	}
	if req.Scopes != nil {
		scopes, err := parseScopes(*req.Scopes)
		if err != nil {
			writeServiceError(w, r, err, "failed to parse scopes")
			return
		}
		if scopes == nil {
			scopes = domain.Scopes{}
		}
		upd.Scopes = &scopes
	}

	k, err := h.Keys.Update(r.Context(), r.PathValue("id"), requester, upd)
	if err != nil {
		writeServiceError(w, r, err, "failed to update api key")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, keyInfo(k))
}

// HandleRevoke handles POST /v1/keys/{id}/revoke
//
//	@Summary		Revoke API Key
//	@Description	Deactivates a key. Revoking an already revoked key succeeds.
//	@Tags			Keys
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Key ID (ULID)"
//	@Success		204	"Key revoked"
//	@Failure		401	{object}	apikeysdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	apikeysdk.ErrorResponse	"permission_denied"
//	@Failure		404	{object}	apikeysdk.ErrorResponse	"key_not_found"
//	@Router			/v1/keys/{id}/revoke [post].
func (h *KeysHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	_, requester, err := caller(r, "")
	if err != nil {
		writeServiceError(w, r, err, "failed to resolve caller")
		return
	}

	if err := h.Keys.Revoke(r.Context(), r.PathValue("id"), requester); err != nil {
		writeServiceError(w, r, err, "failed to revoke api key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRotate handles POST /v1/keys/{id}/rotate
//
//	@Summary		Rotate API Key
//	@Description	Revokes a key and issues a replacement with the same scopes and the remaining lifetime.
//	@Tags			Keys
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string							true	"Key ID (ULID)"
//	@Success		201	{object}	apikeysdk.GeneratedKeyResponse	"replacement key and secret"
//	@Failure		401	{object}	apikeysdk.ErrorResponse			"error, error_description"
//	@Failure		403	{object}	apikeysdk.ErrorResponse			"permission_denied"
//	@Failure		404	{object}	apikeysdk.ErrorResponse			"key_not_found"
//	@Router			/v1/keys/{id}/rotate [post].
func (h *KeysHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	_, requester, err := caller(r, "")
	if err != nil {
		writeServiceError(w, r, err, "failed to resolve caller")
		return
	}

	gen, err := h.Keys.Rotate(r.Context(), r.PathValue("id"), requester)
	if err != nil {
		writeServiceError(w, r, err, "failed to rotate api key")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, generatedResponse(gen))
}
