package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/authn"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/cache"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/metrics"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store"
	"github.com/aussiebroadwan/apikeys/pkg/httpx"
	"github.com/aussiebroadwan/apikeys/pkg/jwtx"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"

	_ "github.com/aussiebroadwan/apikeys/api/apikeys" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits are the rate limit profiles the routes use.
type RateLimits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultRateLimits returns the httpx default profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Public:   httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	Keys         *service.KeyService
	Housekeeping *service.HousekeepingService
	Authn        *authn.Authenticator
	Cache        cache.Cache
	Metrics      *metrics.Metrics
	Limits       RateLimits
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultRateLimits(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerKeys()
	r.registerValidation()
	r.registerHousekeeping()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			AussieBroadWAN API Key Service
//	@version		0.1.0
//	@description	Issues, validates, revokes and rotates scoped API keys.
//	@description
//	@description				Keys look like ak_<prefix>_<secret>. Only a keyed hash of each key is stored.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/apikeys
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Management token (HS256 JWT). Format: "Bearer {token}".
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				API key issued by this service.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerKeys() {
	h := &KeysHandler{Keys: r.Keys}

	// Issuing and rotating mint secrets - strict rate limit by subject
	securedGenerate := httpx.Chain(http.HandlerFunc(h.HandleGenerate),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitBySubject(r.Limits.Strict),
	)
	securedRotate := httpx.Chain(http.HandlerFunc(h.HandleRotate),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitBySubject(r.Limits.Strict),
	)

	moderate := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitBySubject(r.Limits.Moderate),
		)
	}

	r.Mux.Handle("POST /v1/keys", securedGenerate)
	r.Mux.Handle("GET /v1/keys", moderate(h.HandleList))
	r.Mux.Handle("GET /v1/keys/{id}", moderate(h.HandleGet))
	r.Mux.Handle("PATCH /v1/keys/{id}", moderate(h.HandleUpdate))
	r.Mux.Handle("POST /v1/keys/{id}/revoke", moderate(h.HandleRevoke))
	r.Mux.Handle("POST /v1/keys/{id}/rotate", securedRotate)
}

func (r *Router) registerValidation() {
	// POST /v1/keys/validate - public, high limit by IP
	r.Mux.Handle("POST /v1/keys/validate",
		httpx.Chain(&ValidateHandler{Keys: r.Keys},
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)

	if r.Authn == nil {
		return
	}

	// GET /v1/whoami - authenticated by API key, limited per key prefix
	r.Mux.Handle("GET /v1/whoami",
		httpx.Chain(WhoAmIHandler(),
			httpx.RateLimitMiddleware(r.Limits.Public, r.Authn.PrefixKeyExtractor()),
			r.Authn.Middleware(),
			r.Authn.RequireScope("identity", "read"),
		),
	)
}

func (r *Router) registerHousekeeping() {
	if r.Housekeeping == nil {
		return
	}

	r.Mux.Handle("POST /v1/housekeeping/sweep",
		httpx.Chain(&SweepHandler{Housekeeping: r.Housekeeping},
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(jwtx.ScopeAdmin),
			httpx.RateLimitBySubject(r.Limits.Strict),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)

	var cachePinger Pinger
	if r.Cache != nil {
		cachePinger = r.Cache
	}
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, cachePinger),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
