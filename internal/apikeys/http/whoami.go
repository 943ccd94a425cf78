package http

import (
	"net/http"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/authn"
	"github.com/aussiebroadwan/apikeys/pkg/apikeysdk"
	"github.com/aussiebroadwan/apikeys/pkg/httpx"
)

// WhoAmIHandler godoc
//
//	@Summary		Describe the presented API key
//	@Description	Returns the identity of the API key the request authenticated with.
//	@Description	Requires the identity:read scope.
//	@Tags			Validation
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Success		200	{object}	apikeysdk.WhoAmIResponse	"key_id, owner_id, name, key_prefix, scopes"
//	@Failure		401	{object}	apikeysdk.ErrorResponse		"missing_api_key, key_expired, ..."
//	@Failure		403	{object}	apikeysdk.ErrorResponse		"insufficient_scope"
//	@Router			/v1/whoami [get].
func WhoAmIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := authn.IdentityFromContext(r.Context())
		if !ok {
			httpx.ErrServerError.WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, apikeysdk.WhoAmIResponse{
			KeyID:     id.KeyID,
			OwnerID:   id.OwnerID,
			Name:      id.Name,
			KeyPrefix: id.Prefix,
			Scopes:    id.Scopes.Strings(),
		})
	}
}
