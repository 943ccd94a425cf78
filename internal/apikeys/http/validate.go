package http

import (
	"net/http"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/pkg/apikeysdk"
	"github.com/aussiebroadwan/apikeys/pkg/httpx"
	"github.com/aussiebroadwan/apikeys/pkg/keyx"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"
)

// ValidateHandler lets other services check a presented key.
type ValidateHandler struct {
	Keys *service.KeyService
}

// ServeHTTP handles POST /v1/keys/validate
//
//	@Summary		Validate API Key
//	@Description	Reports whether a key is valid. A rejected key is a 200 with valid=false and a reason code:
//	@Description	malformed_key, key_not_found, key_disabled, key_expired or invalid_secret.
//	@Tags			Validation
//	@Accept			json
//	@Produce		json
//	@Param			request	body		apikeysdk.ValidateKeyRequest	true	"Key to validate"
//	@Success		200		{object}	apikeysdk.ValidateKeyResponse	"valid, reason, key"
//	@Failure		400		{object}	apikeysdk.ErrorResponse			"error, error_description"
//	@Failure		429		{object}	apikeysdk.ErrorResponse			"rate_limit_exceeded"
//	@Failure		503		{object}	apikeysdk.ErrorResponse			"store unavailable"
//	@Router			/v1/keys/validate [post].
func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req apikeysdk.ValidateKeyRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.ErrInvalidBody.WriteError(w)
		return
	}

	res, err := h.Keys.Validate(r.Context(), req.Key)
	if err != nil {
		slogx.FromContext(r.Context()).Error("api key validation unavailable", "error", err)
		httpx.ErrUnavailable.WriteError(w)
		return
	}

	out := apikeysdk.ValidateKeyResponse{Valid: res.Valid}
	if !res.Valid {
		out.Reason = service.Code(res.Reason)
	} else {
		info := snapshotInfo(res.Key, keyx.Preview(res.Key.KeyPrefix))
		out.Key = &info
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
