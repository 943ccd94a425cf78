// Package authn authenticates requests that present an API key.
package authn

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/domain"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/pkg/httpx"
	"github.com/aussiebroadwan/apikeys/pkg/keyx"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"
)

const ErrorCodeMissingKey = "missing_api_key"

// Validator is the part of the key service the middleware needs.
type Validator interface {
	Validate(ctx context.Context, candidate string) (service.ValidationResult, error)
	Authorize(ctx context.Context, key domain.KeySnapshot, resource, action string) error
}

// UsageSink receives fire-and-forget usage events.
type UsageSink interface {
	Track(keyID, ip string) bool
}

type Authenticator struct {
	Validator  Validator
	Usage      UsageSink
	Extractors []Extractor
}

// New returns an Authenticator. usage may be nil.
func New(v Validator, usage UsageSink, cfg Config) *Authenticator {
	return &Authenticator{Validator: v, Usage: usage, Extractors: cfg.Extractors()}
}

// Middleware requires a valid API key and puts it in the request context.
func (a *Authenticator) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			candidate, ok := Extract(r, a.Extractors...)
			if !ok {
				writeKeyError(w, ErrorCodeMissingKey, "an API key is required")
				return
			}

			res, err := a.Validator.Validate(ctx, candidate)
			if err != nil {
				log.Error("api key validation unavailable", "error", err)
				httpx.ErrUnavailable.WriteError(w)
				return
			}
			if !res.Valid {
				writeKeyError(w, service.Code(res.Reason), res.Reason.Error())
				return
			}

			if a.Usage != nil {
				a.Usage.Track(res.Key.ID, httpx.IPKeyExtractor(r))
			}

			log = log.With("api_key_id", res.Key.ID, "owner_id", res.Key.OwnerID)
			ctx = slogx.WithContext(withKey(ctx, res.Key), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope rejects keys that are not granted action on resource. It must
// run after Middleware.
func (a *Authenticator) RequireScope(resource, action string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := KeyFromContext(r.Context())
			if !ok {
				writeKeyError(w, ErrorCodeMissingKey, "an API key is required")
				return
			}

			err := a.Validator.Authorize(r.Context(), key, resource, action)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, service.ErrInsufficientScope):
				httpx.NewAPIError(http.StatusForbidden, httpx.ErrorCodeInsufficientScope,
					"the API key is not granted "+resource+":"+action).WriteError(w)
			default:
				slogx.FromContext(r.Context()).Error("scope check failed", "error", err)
				httpx.ErrServerError.WriteError(w)
			}
		})
	}
}

// PrefixKeyExtractor keys rate limits by the presented key's prefix, and
// returns "" for requests without a well formed key.
func (a *Authenticator) PrefixKeyExtractor() httpx.KeyExtractor {
	return func(r *http.Request) string {
		candidate, ok := Extract(r, a.Extractors...)
		if !ok {
			return ""
		}
		p := keyx.Parse(candidate)
		if !p.Valid {
			return ""
		}
		return p.Prefix
	}
}

func writeKeyError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `ApiKey error="`+code+`"`)
	httpx.NewAPIError(http.StatusUnauthorized, code, desc).WriteError(w)
}
