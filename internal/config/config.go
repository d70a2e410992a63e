package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	ShopHeader  string
	RootDomain  string
	DefaultShop string

	LogFormat string
	LogLevel  string

	MetricsNamespace string
	OTLPEndpoint     string

	ProductCacheTTL   time.Duration
	IdempotencyTTL    time.Duration
	CheckoutLockTTL   time.Duration
	CheckoutRate      int64
	CheckoutWindow    time.Duration
	AdminRatePeriod   time.Duration
	AdminRateLimit    int64
	LowStockThreshold int32
	WebhookEndpoint   string
	WorkerQueue       string
	WorkerConcurrent  int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ShopHeader:         valueOrDefault(k.String("SHOP_HEADER"), "X-Shop-ID"),
		RootDomain:         strings.TrimSpace(k.String("SHOP_ROOT_DOMAIN")),
		DefaultShop:        strings.TrimSpace(k.String("DEFAULT_SHOP")),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), "backoffice"),
		OTLPEndpoint:       strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ProductCacheTTL:    parseDuration(k.String("PRODUCT_CACHE_TTL"), "5m"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutLockTTL:    parseDuration(k.String("CHECKOUT_LOCK_TTL"), "15s"),
		CheckoutRate:       parseInt64(k.String("CHECKOUT_RATE"), 10),
		CheckoutWindow:     parseDuration(k.String("CHECKOUT_WINDOW"), "1m"),
		AdminRatePeriod:    parseDuration(k.String("ADMIN_RATE_PERIOD"), "1m"),
		AdminRateLimit:     parseInt64(k.String("ADMIN_RATE_LIMIT"), 120),
		LowStockThreshold:  int32(parseInt64(k.String("LOW_STOCK_THRESHOLD"), 5)),
		WebhookEndpoint:    strings.TrimSpace(k.String("WEBHOOK_ENDPOINT")),
		WorkerQueue:        valueOrDefault(k.String("WORKER_QUEUE"), "default"),
		WorkerConcurrent:   int(parseInt64(k.String("WORKER_CONCURRENCY"), 10)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	var n int64
	if _, err := fmt.Sscanf(base, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
