package httpx

import (
	"fmt"
	"net/http"
)

// APIError is the JSON error body returned by every endpoint.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	WriteJSON(w, e.StatusCode, e)
}

// NewAPIError returns an APIError.
func NewAPIError(status int, code, description string) *APIError {
	return &APIError{StatusCode: status, Code: code, Description: description}
}

const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeServerError       = "server_error"
	ErrorCodeRateLimited       = "rate_limit_exceeded"
)

var (
	ErrInvalidRequest = NewAPIError(http.StatusBadRequest, ErrorCodeInvalidRequest,
		"the request is malformed or missing required parameters")
	ErrInvalidBody = NewAPIError(http.StatusBadRequest, ErrorCodeInvalidRequest,
		"invalid JSON body")
	ErrNotFound = NewAPIError(http.StatusNotFound, ErrorCodeNotFound,
		"resource not found")
	ErrServerError = NewAPIError(http.StatusInternalServerError, ErrorCodeServerError,
		"internal server error")
	ErrUnavailable = NewAPIError(http.StatusServiceUnavailable, ErrorCodeServerError,
		"service temporarily unavailable")
)
