package http

import (
	"net/http"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/pkg/apikeysdk"
	"github.com/aussiebroadwan/apikeys/pkg/httpx"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"
)

// SweepHandler runs the expiry sweep on demand.
type SweepHandler struct {
	Housekeeping *service.HousekeepingService
}

// ServeHTTP handles POST /v1/housekeeping/sweep
//
//	@Summary		Run expiry sweep
//	@Description	Drops cached entries of keys that expired since the previous sweep.
//	@Tags			Housekeeping
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	apikeysdk.SweepResponse	"invalidated"
//	@Failure		401	{object}	apikeysdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	apikeysdk.ErrorResponse	"insufficient_scope"
//	@Failure		500	{object}	apikeysdk.ErrorResponse	"error, error_description"
//	@Router			/v1/housekeeping/sweep [post].
func (h *SweepHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n, err := h.Housekeeping.Sweep(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("expiry sweep failed", "error", err)
		httpx.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, apikeysdk.SweepResponse{Invalidated: n})
}
