package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvBackendBaseURL = "STOREFRONT_BACKEND_BASE_URL"
	EnvCartBackend    = "STOREFRONT_CART_BACKEND"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvDBDSN          = "STOREFRONT_DB_DSN"
	EnvUseSQLite      = "STOREFRONT_USE_SQLITE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	CartBackendRedis  = "redis"
	CartBackendSQL    = "sql"
	CartBackendMemory = "memory"
)

type Config struct {
	App          AppConfig
	Backend      BackendConfig
	Session      SessionConfig
	Cart         CartConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	LoginLimit   LoginRateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Media        MediaConfig
	Cache        CacheConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BackendConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"10s"`
}

type SessionConfig struct {
	CookieName string        `envconfig:"STOREFRONT_SESSION_COOKIE" default:"sf_session"`
	TTL        time.Duration `envconfig:"STOREFRONT_SESSION_TTL" default:"720h"`
	Secure     bool          `envconfig:"STOREFRONT_SESSION_SECURE" default:"true"`
	// IdleEvict drops in-memory per-session stores unused for this long.
	// Persisted carts are unaffected.
	IdleEvict     time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_EVICT" default:"30m"`
	SweepInterval time.Duration `envconfig:"STOREFRONT_SESSION_SWEEP_INTERVAL" default:"5m"`
}

type CartConfig struct {
	Backend string `envconfig:"STOREFRONT_CART_BACKEND" default:"redis"`
}

type DBConfig struct {
	DSN             string        `envconfig:"STOREFRONT_DB_DSN"`
	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a redis target was supplied.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

// JWTConfig is used to read the backend's access tokens. Without a secret the
// claims are parsed but not verified.
type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER"`
}

type LoginRateLimitConfig struct {
	Window        time.Duration `envconfig:"STOREFRONT_LOGIN_RATE_WINDOW" default:"1m"`
	IPLimit       int           `envconfig:"STOREFRONT_LOGIN_IP_LIMIT" default:"20"`
	UsernameLimit int           `envconfig:"STOREFRONT_LOGIN_USERNAME_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"STOREFRONT_MEDIA_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured limit into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type CacheConfig struct {
	CatalogTTL time.Duration `envconfig:"STOREFRONT_CATALOG_CACHE_TTL" default:"60s"`
	LandingTTL time.Duration `envconfig:"STOREFRONT_LANDING_CACHE_TTL" default:"30s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (c *Config) validate() error {
	c.Cart.Backend = strings.ToLower(strings.TrimSpace(c.Cart.Backend))
	switch c.Cart.Backend {
	case CartBackendRedis:
		if !c.Redis.Configured() {
			return fmt.Errorf("%s=redis requires %s", EnvCartBackend, EnvRedisURL)
		}
	case CartBackendSQL:
		if c.DB.DSN == "" && !c.FeatureFlags.UseSQLite {
			return fmt.Errorf("%s=sql requires %s or %s", EnvCartBackend, EnvDBDSN, EnvUseSQLite)
		}
	case CartBackendMemory:
	default:
		return fmt.Errorf("unsupported %s %q", EnvCartBackend, c.Cart.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	return nil
}
