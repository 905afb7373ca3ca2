package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/markofilipovic2762/eshop-cms/pkg/config"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	SecureCookies  bool          `env:"SECURE_COOKIES" envDefault:"false"`

	// REST backend
	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:5056"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"1s"`
	BackendRetries int           `env:"BACKEND_MAX_RETRIES" envDefault:"0"`

	// Persistent store
	StorageDriver string        `env:"STORAGE_DRIVER" envDefault:"memory"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass     string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	StateTTL      time.Duration `env:"STATE_TTL" envDefault:"168h"`

	// Profiles idle longer than this are dropped from memory.
	ProfileIdleTTL time.Duration `env:"PROFILE_IDLE_TTL" envDefault:"30m"`

	// Kafka; empty disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Checkout
	CheckoutDelay time.Duration `env:"CHECKOUT_PROCESSING_DELAY" envDefault:"1500ms"`

	// Dashboard guard; when set the user cookie token must be a valid HS256 JWT.
	DashboardJWTSecret string `env:"DASHBOARD_JWT_SECRET"`

	// Login and register rate limit per client IP.
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"5"`

	// Profiling
	PprofEnabled      bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	c.StorageDriver = strings.ToLower(c.StorageDriver)
	if c.StorageDriver != StorageMemory && c.StorageDriver != StorageRedis {
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageMemory, StorageRedis, c.StorageDriver)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.BackendRetries < 0 {
		return fmt.Errorf("BACKEND_MAX_RETRIES must not be negative")
	}
	if c.StateTTL <= 0 {
		return fmt.Errorf("STATE_TTL must be positive")
	}
	if c.ProfileIdleTTL <= 0 {
		return fmt.Errorf("PROFILE_IDLE_TTL must be positive")
	}
	if c.CheckoutDelay < 0 {
		return fmt.Errorf("CHECKOUT_PROCESSING_DELAY must not be negative")
	}
	if c.AuthRateLimitRPS <= 0 || c.AuthRateLimitBurst < 1 {
		return fmt.Errorf("auth rate limit must allow at least one request")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// KafkaEnabled reports whether domain events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
