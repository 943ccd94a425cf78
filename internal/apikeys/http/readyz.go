package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/apikeys/pkg/apikeysdk"
	"github.com/aussiebroadwan/apikeys/pkg/httpx"
)

// Pinger is a dependency readiness can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	The database must answer. A failing cache degrades the service but does not fail readiness,
//	@Description	since validation falls back to the database.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	apikeysdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	apikeysdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &apikeysdk.HealthChecks{
			Database: "ok",
			Cache:    "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := db.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		if cache == nil {
			checks.Cache = "disabled"
		} else if err := cache.Ping(r.Context()); err != nil {
			checks.Cache = "error: " + err.Error()
			if statusCode == http.StatusOK {
				overallStatus = "degraded"
			}
		}

		httpx.WriteJSON(w, statusCode, apikeysdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
