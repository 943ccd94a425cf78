package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/cache"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/service"
	"github.com/aussiebroadwan/apikeys/pkg/jwtx"
)

// EnvPrefix prefixes every environment override, e.g. APIKEYS_DATABASE_DRIVER.
const EnvPrefix = "APIKEYS"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port                int           `mapstructure:"port"`                  // HTTP server port (default: 8080)
	Env                 string        `mapstructure:"env"`                   // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        `mapstructure:"log_level"`             // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        `mapstructure:"log_format"`            // Log format (json, text) (default: json)
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"` // Graceful shutdown timeout (default: 10s)
	PepperFile          string        `mapstructure:"pepper_file"`           // Key hashing pepper, created on first start (default: ./pepper)

	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Keys         KeysConfig         `mapstructure:"keys"`
	Authn        AuthnConfig        `mapstructure:"authn"`
	Usage        UsageConfig        `mapstructure:"usage"`
	Housekeeping HousekeepingConfig `mapstructure:"housekeeping"`
	JWT          JWTConfig          `mapstructure:"jwt"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres (default: sqlite)
	File   string `mapstructure:"file"`   // SQLite database file (default: ./apikeys.db)
	URL    string `mapstructure:"url"`    // Postgres connection URL
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend"` // memory, redis or none (default: memory)
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	ValidationTTL time.Duration `mapstructure:"validation_ttl"`
	ScopeTTL      time.Duration `mapstructure:"scope_ttl"`
	ListingTTL    time.Duration `mapstructure:"listing_ttl"`
}

type KeysConfig struct {
	MaxPerOwner       int  `mapstructure:"max_per_owner"`
	DefaultExpiryDays int  `mapstructure:"default_expiry_days"`
	AllowUnrestricted bool `mapstructure:"allow_unrestricted"`
}

type AuthnConfig struct {
	Header     string `mapstructure:"header"`
	AllowQuery bool   `mapstructure:"allow_query"`
	QueryParam string `mapstructure:"query_param"`
}

type UsageConfig struct {
	Buffer  int `mapstructure:"buffer"`
	Workers int `mapstructure:"workers"`
}

type HousekeepingConfig struct {
	Schedule string `mapstructure:"schedule"` // cron spec (default: @every 15m)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"` // HS256 secret for management tokens, at least 32 bytes
	Issuer string `mapstructure:"issuer"`
}

func setDefaults(v *viper.Viper) {
	ttl := cache.DefaultTTLs()
	redis := cache.DefaultRedisConfig()

	v.SetDefault("port", 8080)
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_grace_period", 10*time.Second)
	v.SetDefault("pepper_file", "pepper")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file", "apikeys.db")
	v.SetDefault("database.url", "")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", redis.Address)
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.prefix", redis.Prefix)
	v.SetDefault("cache.validation_ttl", ttl.Validation)
	v.SetDefault("cache.scope_ttl", ttl.Scope)
	v.SetDefault("cache.listing_ttl", ttl.Listing)

	v.SetDefault("keys.max_per_owner", service.DefaultMaxKeysPerOwner)
	v.SetDefault("keys.default_expiry_days", service.DefaultExpiryDays)
	v.SetDefault("keys.allow_unrestricted", false)

	v.SetDefault("authn.header", "X-API-Key")
	v.SetDefault("authn.allow_query", false)
	v.SetDefault("authn.query_param", "api_key")

	v.SetDefault("usage.buffer", 1024)
	v.SetDefault("usage.workers", 2)

	v.SetDefault("housekeeping.schedule", service.DefaultSweepSchedule)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "apikeys")
}

// LoadConfig reads defaults, then the optional YAML file, then APIKEYS_*
// environment variables, and validates the result.
func LoadConfig(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database.url is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	switch c.Cache.Backend {
	case "memory", "none", "redis":
	default:
		return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalidConfig, c.Cache.Backend)
	}

	if len(c.JWT.Secret) < jwtx.MinSecretSize {
		return fmt.Errorf("%w: jwt.secret must be at least %d bytes", ErrInvalidConfig, jwtx.MinSecretSize)
	}
	if c.Keys.MaxPerOwner < 1 || c.Keys.DefaultExpiryDays < 1 {
		return fmt.Errorf("%w: keys.max_per_owner and keys.default_expiry_days must be positive", ErrInvalidConfig)
	}
	if c.Usage.Workers < 1 || c.Usage.Buffer < 1 {
		return fmt.Errorf("%w: usage.buffer and usage.workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// TTLs returns the cache lifetimes.
func (c CacheConfig) TTLs() cache.TTLs {
	return cache.TTLs{
		Validation: c.ValidationTTL,
		Scope:      c.ScopeTTL,
		Listing:    c.ListingTTL,
	}
}
