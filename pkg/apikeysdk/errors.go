package apikeysdk

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/apikeys/pkg/httpx"
)

// Error codes the service returns, beyond the generic httpx ones.
const (
	ErrorCodeMissingKey       = "missing_api_key"
	ErrorCodeMalformedKey     = "malformed_key"
	ErrorCodeKeyNotFound      = "key_not_found"
	ErrorCodeKeyDisabled      = "key_disabled"
	ErrorCodeKeyExpired       = "key_expired"
	ErrorCodeInvalidSecret    = "invalid_secret"
	ErrorCodePermissionDenied = "permission_denied"
	ErrorCodeQuotaExceeded    = "quota_exceeded"
)

// parseErrorResponse turns a non-success response into an *httpx.APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return httpx.NewAPIError(resp.StatusCode, httpx.ErrorCodeServerError,
			http.StatusText(resp.StatusCode))
	}
	return httpx.NewAPIError(resp.StatusCode, e.Error, e.ErrorDescription)
}

// ErrorCode returns the service error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr *httpx.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *httpx.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
