package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
)

// Storage and ledger backends.
const (
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendStorage  = "storage"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Log file rotation; disabled when LogFile is empty.
	LogFile          string `env:"LOG_FILE"`
	LogFileMaxSizeMB int    `env:"LOG_FILE_MAX_SIZE_MB" envDefault:"100"`
	LogFileBackups   int    `env:"LOG_FILE_MAX_BACKUPS" envDefault:"5"`
	LogFileMaxAge    int    `env:"LOG_FILE_MAX_AGE_DAYS" envDefault:"28"`
	LogFileCompress  bool   `env:"LOG_FILE_COMPRESS" envDefault:"true"`

	// HTTP server
	HTTPPort       int      `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Per-shopper request rate; 0 disables limiting.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Document storage (cart, checkout_session, wishlist)
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"redis"`
	DocumentTTL    time.Duration `env:"DOCUMENT_TTL" envDefault:"168h"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Order ledger
	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB       string        `env:"STOREFRONT_DB_NAME" envDefault:"storefront_db"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	PostgresMinConns int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	PostgresConnLife time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	PostgresConnIdle time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"15m"`

	// Kafka
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`

	// Collaborators; empty URLs select the in-process implementations.
	CatalogURL        string        `env:"CATALOG_URL"`
	SubmissionURL     string        `env:"ORDER_SUBMISSION_URL"`
	SubmissionTimeout time.Duration `env:"ORDER_SUBMISSION_TIMEOUT" envDefault:"10s"`
	BreakerMaxFails   uint32        `env:"CIRCUIT_BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerTimeout    time.Duration `env:"CIRCUIT_BREAKER_TIMEOUT" envDefault:"30s"`

	// Pricing
	VATRate               decimal.Decimal `env:"VAT_RATE" envDefault:"0.15"`
	FreeShippingThreshold decimal.Decimal `env:"FREE_SHIPPING_THRESHOLD" envDefault:"500"`
	FlatShipping          decimal.Decimal `env:"FLAT_SHIPPING" envDefault:"50"`
	ExpressShipping       decimal.Decimal `env:"EXPRESS_SHIPPING" envDefault:"50"`
	Currency              string          `env:"CURRENCY" envDefault:"SAR"`

	StandardDeliveryDays int `env:"STANDARD_DELIVERY_DAYS" envDefault:"5"`
	ExpressDeliveryDays  int `env:"EXPRESS_DELIVERY_DAYS" envDefault:"2"`
	MaxCartLines         int `env:"CART_MAX_LINES" envDefault:"50"`

	IdempotencyLockTTL time.Duration `env:"IDEMPOTENCY_LOCK_TTL" envDefault:"30s"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

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
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.StorageBackend != BackendRedis && c.StorageBackend != BackendMemory {
		return fmt.Errorf("invalid storage backend %q: want %s or %s", c.StorageBackend, BackendRedis, BackendMemory)
	}
	if c.LedgerBackend != BackendPostgres && c.LedgerBackend != BackendStorage {
		return fmt.Errorf("invalid ledger backend %q: want %s or %s", c.LedgerBackend, BackendPostgres, BackendStorage)
	}
	if err := c.PricingRules().Validate(); err != nil {
		return fmt.Errorf("invalid pricing rules: %w", err)
	}
	if c.StandardDeliveryDays < 1 || c.ExpressDeliveryDays < 1 {
		return fmt.Errorf("delivery days must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.MaxCartLines < 1 {
		return fmt.Errorf("invalid cart line limit: %d", c.MaxCartLines)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL sample rate: %v", c.OTELSampleRate)
	}
	for name, raw := range map[string]string{"catalog": c.CatalogURL, "order submission": c.SubmissionURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s URL: %q", name, raw)
		}
	}
	return nil
}

// PricingRules returns the pricing engine configuration.
func (c *Config) PricingRules() domain.PricingRules {
	return domain.PricingRules{
		VATRate:               c.VATRate,
		FreeShippingThreshold: c.FreeShippingThreshold,
		FlatShipping:          c.FlatShipping,
		ExpressShipping:       c.ExpressShipping,
		Currency:              c.Currency,
	}
}

// DeliveryDays returns the estimated delivery offsets.
func (c *Config) DeliveryDays() domain.DeliveryDays {
	return domain.DeliveryDays{Standard: c.StandardDeliveryDays, Express: c.ExpressDeliveryDays}
}

// Postgres returns the ledger database connection settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.PostgresMaxConns,
		MinConns:        c.PostgresMinConns,
		MaxConnLifetime: c.PostgresConnLife,
		MaxConnIdleTime: c.PostgresConnIdle,
	}
}

// Redis returns the document store connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPass, DB: c.RedisDB}
}
