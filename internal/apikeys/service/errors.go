package service

import "errors"

// Authentication and authorization failures. These are expected outcomes,
// not faults, and map to distinct client visible codes.
var (
	ErrMalformedKey      = errors.New("api key is malformed")
	ErrKeyNotFound       = errors.New("api key not found")
	ErrKeyDisabled       = errors.New("api key is disabled")
	ErrKeyExpired        = errors.New("api key has expired")
	ErrInvalidSecret     = errors.New("api key secret does not match")
	ErrInsufficientScope = errors.New("api key lacks the required scope")
	ErrPermissionDenied  = errors.New("permission denied: key belongs to another owner")
	ErrQuotaExceeded     = errors.New("maximum number of api keys reached")
)

// Input errors.
var (
	ErrInvalidName   = errors.New("name is required and must be at most 100 characters")
	ErrInvalidOwner  = errors.New("owner id is required")
	ErrInvalidScopes = errors.New("invalid scopes")
	ErrInvalidExpiry = errors.New("expiry must not be negative or in the past")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrMalformedKey, "malformed_key"},
	{ErrKeyNotFound, "key_not_found"},
	{ErrKeyDisabled, "key_disabled"},
	{ErrKeyExpired, "key_expired"},
	{ErrInvalidSecret, "invalid_secret"},
	{ErrInsufficientScope, "insufficient_scope"},
	{ErrPermissionDenied, "permission_denied"},
	{ErrQuotaExceeded, "quota_exceeded"},
	{ErrInvalidName, "invalid_name"},
	{ErrInvalidOwner, "invalid_owner"},
	{ErrInvalidScopes, "invalid_scopes"},
	{ErrInvalidExpiry, "invalid_expiry"},
}

// Code returns the stable machine code for err. Anything that is not one of
// the sentinels above is a server error.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "server_error"
}

// IsAuthFailure reports whether err is one of the validation outcomes a
// presented key can produce.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrMalformedKey) ||
		errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrKeyDisabled) ||
		errors.Is(err, ErrKeyExpired) ||
		errors.Is(err, ErrInvalidSecret)
}
