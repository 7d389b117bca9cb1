package config

import (
	"errors"
	"fmt"
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
	JWTSecret          string
	CORSAllowedOrigins []string

	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	PasswordResetTTL time.Duration
	PublicBaseURL    string

	RefreshCookieName   string
	RefreshCookieSecure bool

	CurrencyCode  string
	DefaultTaxBps int

	RestaurantCacheTTL     time.Duration
	RestaurantDefaultLimit int
	RestaurantMaxLimit     int

	ReservationHoldTTL time.Duration
	LockRetryBackoff   time.Duration

	IdempotencyTTL time.Duration

	PaymentGatewayURL string
	PaymentAPIKey     string
	PaymentTimeout    time.Duration
	PaymentSandbox    bool

	WebhookDeliveryEnabled    bool
	WebhookRequestTimeout     time.Duration
	WebhookBackoffBaseSec     int
	WebhookDefaultMaxAttempts int
	WebhookReplayTTL          time.Duration

	QueueRedisPrefix       string
	QueueConcurrency       int
	QueueVisibilityTimeout time.Duration
	QueueBackoffBase       time.Duration
	QueueBackoffJitter     float64

	NotifyEmailEnabled bool
	NotifyEmailFrom    string

	AnalyticsCacheTTL     time.Duration
	AnalyticsDefaultRange int

	AuditEnabled      bool
	AuditSamplingRate float64

	EventWorkerConcurrency int

	AuthRateWindow  time.Duration
	AuthRateMax     int
	GlobalRatePer1M int64
	BodyLimitBytes  int64
}

// Load reads configuration from environment variables and an optional .env file.
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
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AccessTokenTTL:   parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL:  parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),
		PasswordResetTTL: parseDuration(k.String("PASSWORD_RESET_TTL"), "1h"),
		PublicBaseURL:    valueOrDefault(k.String("PUBLIC_BASE_URL"), "http://localhost:8080"),

		RefreshCookieName:   valueOrDefault(k.String("REFRESH_COOKIE_NAME"), "warung_refresh"),
		RefreshCookieSecure: parseBool(k.String("REFRESH_COOKIE_SECURE")),

		CurrencyCode:  valueOrDefault(k.String("BILLING_CURRENCY"), "IDR"),
		DefaultTaxBps: intOrDefault(k, "BILLING_DEFAULT_TAX_BPS", 1000),

		RestaurantCacheTTL:     parseDuration(k.String("RESTAURANT_CACHE_TTL"), "5m"),
		RestaurantDefaultLimit: intOrDefault(k, "RESTAURANT_DEFAULT_LIMIT", 20),
		RestaurantMaxLimit:     intOrDefault(k, "RESTAURANT_MAX_LIMIT", 100),

		ReservationHoldTTL: parseDuration(k.String("RESERVATION_HOLD_TTL"), "10s"),
		LockRetryBackoff:   parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),

		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		PaymentGatewayURL: k.String("PAYMENT_GATEWAY_URL"),
		PaymentAPIKey:     k.String("PAYMENT_API_KEY"),
		PaymentTimeout:    parseDuration(k.String("PAYMENT_TIMEOUT"), "10s"),
		PaymentSandbox:    parseBool(valueOrDefault(k.String("PAYMENT_SANDBOX"), "true")),

		WebhookDeliveryEnabled:    parseBool(valueOrDefault(k.String("WEBHOOK_DELIVERY_ENABLED"), "true")),
		WebhookRequestTimeout:     parseDuration(k.String("WEBHOOK_REQUEST_TIMEOUT"), "5s"),
		WebhookBackoffBaseSec:     intOrDefault(k, "WEBHOOK_BACKOFF_BASE_SEC", 30),
		WebhookDefaultMaxAttempts: intOrDefault(k, "WEBHOOK_MAX_ATTEMPTS", 6),
		WebhookReplayTTL:          parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "48h"),

		QueueRedisPrefix:       valueOrDefault(k.String("QUEUE_REDIS_PREFIX"), "warung"),
		QueueConcurrency:       intOrDefault(k, "QUEUE_CONCURRENCY", 4),
		QueueVisibilityTimeout: parseDuration(k.String("QUEUE_VISIBILITY_TIMEOUT"), "30s"),
		QueueBackoffBase:       parseDuration(k.String("QUEUE_BACKOFF_BASE"), "2s"),
		QueueBackoffJitter:     floatOrDefault(k, "QUEUE_BACKOFF_JITTER", 0.2),

		NotifyEmailEnabled: parseBool(valueOrDefault(k.String("NOTIFY_EMAIL_ENABLED"), "false")),
		NotifyEmailFrom:    valueOrDefault(k.String("NOTIFY_EMAIL_FROM"), "no-reply@warung.example"),

		AnalyticsCacheTTL:     parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),
		AnalyticsDefaultRange: intOrDefault(k, "ANALYTICS_DEFAULT_RANGE_DAYS", 30),

		AuditEnabled:      parseBool(valueOrDefault(k.String("AUDIT_ENABLED"), "true")),
		AuditSamplingRate: floatOrDefault(k, "AUDIT_SAMPLING_RATE", 1),

		EventWorkerConcurrency: intOrDefault(k, "EVENT_WORKER_CONCURRENCY", 1),

		AuthRateWindow:  parseDuration(k.String("AUTH_RATE_WINDOW"), "1m"),
		AuthRateMax:     intOrDefault(k, "AUTH_RATE_MAX", 30),
		GlobalRatePer1M: int64(intOrDefault(k, "GLOBAL_RATE_PER_MINUTE", 600)),
		BodyLimitBytes:  int64(intOrDefault(k, "BODY_LIMIT_BYTES", 1<<20)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
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
		if trimmed := strings.TrimSpace(part); trimmed != "" {
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

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func intOrDefault(k *koanf.Koanf, key string, fallback int) int {
	if !k.Exists(key) {
		return fallback
	}
	v := k.Int(key)
	if v == 0 && strings.TrimSpace(k.String(key)) != "0" {
		return fallback
	}
	return v
}

func floatOrDefault(k *koanf.Koanf, key string, fallback float64) float64 {
	if !k.Exists(key) {
		return fallback
	}
	return k.Float64(key)
}
