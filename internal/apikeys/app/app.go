package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/authn"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/cache"
	httpapi "github.com/aussiebroadwan/apikeys/internal/apikeys/http"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/metrics"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store/drivers/postgres"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store/drivers/sqlite"
	"github.com/aussiebroadwan/apikeys/pkg/cryptox"
	"github.com/aussiebroadwan/apikeys/pkg/jwtx"
	"github.com/aussiebroadwan/apikeys/pkg/keyx"
	"github.com/aussiebroadwan/apikeys/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the API key service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	cache   cache.Cache
	redis   *cache.Redis
	metrics *metrics.Metrics
	jwt     *jwtx.HS256

	// Services
	keyService          *service.KeyService
	usageTracker        *service.UsageTracker
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "apikeys",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Redact:  keyx.Redact,
		}),
		metrics: metrics.New(""),
	}

	jwt, err := jwtx.NewHS256([]byte(cfg.JWT.Secret), cfg.JWT.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize management token verifier: %w", err)
	}
	app.jwt = jwt

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initCache()

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Start launches the background workers without the HTTP listener.
func (app *Application) Start() error {
	app.usageTracker.Start()
	if err := app.housekeepingService.Start(); err != nil {
		app.usageTracker.Stop()
		return fmt.Errorf("failed to start housekeeping: %w", err)
	}
	return nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if err := app.Start(); err != nil {
		return err
	}

	app.logger.Info("api key service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops the workers and closes the
// backends. Pending usage events are written before the database closes.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down api key service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.usageTracker.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("api key service stopped")
	return nil
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg DatabaseConfig) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.Driver {
	case "postgres":
		db, err = postgres.NewStore(ctx, cfg.URL)
	default:
		db, err = sqlite.NewStore(sqliteDSN(cfg.File))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// sqliteDSN applies the pragmas to every pooled connection.
func sqliteDSN(file string) string {
	if file == ":memory:" {
		return file
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", file)
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := OpenStore(context.Background(), app.cfg.Database)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.Database.Driver)
	return nil
}

// initCache picks the cache backend. A remote cache sits behind a circuit
// breaker so an outage degrades to database reads instead of timeouts.
func (app *Application) initCache() {
	switch app.cfg.Cache.Backend {
	case "none":
		app.logger.Info("cache disabled")
	case "redis":
		rc := cache.DefaultRedisConfig()
		rc.Address = app.cfg.Cache.RedisAddr
		rc.Password = app.cfg.Cache.RedisPassword
		rc.DB = app.cfg.Cache.RedisDB
		rc.Prefix = app.cfg.Cache.Prefix
		rc.TagTTL = max(rc.TagTTL, app.cfg.Cache.TTLs().Longest())
		app.redis = cache.NewRedis(rc)

		bc := cache.DefaultBreakerConfig()
		bc.Name = "redis"
		bc.OnStateChange = app.metrics.SetBreakerState
		app.cache = cache.NewBreaker(app.redis, bc, app.logger)
		app.logger.Info("cache backend redis", "addr", rc.Address)
	default:
		app.cache = cache.NewMemory(nil)
		app.logger.Info("cache backend memory")
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	codec, err := keyx.NewCodec(pepper)
	if err != nil {
		return fmt.Errorf("failed to initialize key codec: %w", err)
	}

	app.metrics.Init()
	keyCache := cache.NewKeyCache(app.cache, app.cfg.Cache.TTLs(), app.metrics)

	app.keyService = &service.KeyService{
		Store:             app.db,
		Codec:             codec,
		Cache:             keyCache,
		Metrics:           app.metrics,
		MaxKeysPerOwner:   app.cfg.Keys.MaxPerOwner,
		DefaultExpiryDays: app.cfg.Keys.DefaultExpiryDays,
		AllowUnrestricted: app.cfg.Keys.AllowUnrestricted,
	}

	app.usageTracker = service.NewUsageTracker(
		app.keyService,
		app.logger,
		app.metrics,
		app.cfg.Usage.Buffer,
		app.cfg.Usage.Workers,
	)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		keyCache,
		app.logger,
		app.metrics,
		app.cfg.Housekeeping.Schedule,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.jwt, BuildVersion, app.db, app.logger)

	router.Keys = app.keyService
	router.Housekeeping = app.housekeepingService
	router.Authn = authn.New(app.keyService, app.usageTracker, authn.Config{
		Header:     app.cfg.Authn.Header,
		AllowQuery: app.cfg.Authn.AllowQuery,
		QueryParam: app.cfg.Authn.QueryParam,
	})
	router.Cache = app.cache
	router.Metrics = app.metrics
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
