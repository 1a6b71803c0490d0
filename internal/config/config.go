package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/money"
	"github.com/noah-isme/travel-pricing/internal/pricing"
	"github.com/noah-isme/travel-pricing/internal/resilience"
)

// Cache backends accepted by FX_CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds pricing configuration loaded from the environment.
type Config struct {
	AppEnv string

	BaseCurrency   money.Currency
	MarkupRate     decimal.Decimal
	ExemptTenantID string
	CommissionRate decimal.Decimal
	Rounding       pricing.Rounding

	FXAPIBaseURL     string
	FXCacheTTL       time.Duration
	FXFetchTimeout   time.Duration
	FXSpread         decimal.Decimal
	FXCacheBackend   string
	FXWarmCurrencies []money.Currency
	FXWarmInterval   time.Duration

	RedisURL            string
	ScheduleEventBuffer time.Duration

	Circuit CircuitConfig
	Retry   RetryConfig

	LockTTL          time.Duration
	LockRetryBackoff time.Duration

	Obs ObsConfig
}

// CircuitConfig tunes the breaker guarding the FX provider.
type CircuitConfig = resilience.BreakerSettings

// RetryConfig tunes retries against the FX provider.
type RetryConfig struct {
	Base          time.Duration
	MaxAttempts   int
	JitterPercent float64
}

// ObsConfig controls logging, metrics and tracing. MetricsAddr is where the
// worker serves /metrics; empty disables it.
type ObsConfig struct {
	ServiceName      string
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsAddr      string
	TracingEnabled   bool
	TracingEndpoint  string
	TracingExporter  string
	TracingRatio     float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:         valueOrDefault(k.String("APP_ENV"), "development"),
		BaseCurrency:   money.ParseCurrency(valueOrDefault(k.String("PRICING_BASE_CURRENCY"), "GBP")),
		MarkupRate:     parseDecimal(k.String("PRICING_MARKUP_RATE"), "0.10"),
		ExemptTenantID: strings.TrimSpace(k.String("PRICING_EXEMPT_TENANT_ID")),
		CommissionRate: parseDecimal(k.String("PRICING_COMMISSION_RATE"), "0"),
		Rounding:       pricing.Rounding(strings.ToLower(valueOrDefault(k.String("PRICING_ROUNDING"), string(pricing.RoundingCanonical)))),

		FXAPIBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("FX_API_BASE_URL")), "/"),
		FXCacheTTL:       parseDuration(k.String("FX_CACHE_TTL"), "5m"),
		FXFetchTimeout:   parseDuration(k.String("FX_FETCH_TIMEOUT"), "3s"),
		FXSpread:         parseDecimal(k.String("FX_SPREAD"), "0.05"),
		FXCacheBackend:   strings.ToLower(valueOrDefault(k.String("FX_CACHE_BACKEND"), CacheMemory)),
		FXWarmCurrencies: parseCurrencies(valueOrDefault(k.String("FX_WARM_CURRENCIES"), "GBP,EUR,USD")),
		FXWarmInterval:   parseDuration(k.String("FX_WARM_INTERVAL"), "4m"),

		RedisURL:            strings.TrimSpace(k.String("REDIS_URL")),
		ScheduleEventBuffer: parseDuration(k.String("SCHEDULE_EVENT_BUFFER"), "168h"),

		Circuit: CircuitConfig{
			MinRequests:  parseInt(k.String("CIRCUIT_FX_MIN_REQUESTS"), 5),
			FailureRatio: parseFloat(k.String("CIRCUIT_FX_FAILURE_RATIO"), 0.5),
			OpenFor:      parseDuration(k.String("CIRCUIT_FX_OPEN_FOR"), "30s"),
		},
		Retry: RetryConfig{
			Base:          parseDuration(k.String("RETRY_BASE"), "100ms"),
			MaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 2),
			JitterPercent: parseFloat(k.String("RETRY_JITTER_PERCENT"), 20),
		},

		LockTTL:          parseDuration(k.String("LOCK_TTL"), "30s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "200ms"),

		Obs: ObsConfig{
			ServiceName:      valueOrDefault(k.String("OBS_SERVICE_NAME"), "travel-pricing"),
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "travel_pricing"),
			MetricsAddr:      strings.TrimSpace(k.String("OBS_METRICS_ADDR")),
			TracingEnabled:   parseBool(k.String("OBS_TRACING_ENABLED")),
			TracingEndpoint:  strings.TrimSpace(k.String("OBS_TRACING_ENDPOINT")),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			TracingRatio:     parseFloat(k.String("OBS_TRACING_RATIO"), 1),
		},
	}

	if !cfg.BaseCurrency.Valid() {
		return nil, fmt.Errorf("PRICING_BASE_CURRENCY %q is not a currency code", cfg.BaseCurrency)
	}
	if cfg.MarkupRate.IsNegative() {
		return nil, errors.New("PRICING_MARKUP_RATE must not be negative")
	}
	if cfg.FXSpread.IsNegative() {
		return nil, errors.New("FX_SPREAD must not be negative")
	}
	if err := cfg.Policy().Validate(); err != nil {
		return nil, err
	}
	switch cfg.FXCacheBackend {
	case CacheMemory:
	case CacheRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis cache backend")
		}
	default:
		return nil, fmt.Errorf("FX_CACHE_BACKEND %q is not supported", cfg.FXCacheBackend)
	}

	return cfg, nil
}

// Policy returns the tenant pricing policy described by the configuration.
func (c *Config) Policy() pricing.TenantPricingPolicy {
	return pricing.TenantPricingPolicy{
		MarkupRate:     c.MarkupRate,
		ExemptTenantID: c.ExemptTenantID,
		Currency:       c.BaseCurrency,
		CommissionRate: c.CommissionRate,
		Rounding:       c.Rounding,
	}
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
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

func parseDecimal(value, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.RequireFromString(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseCurrencies(value string) []money.Currency {
	parts := strings.Split(value, ",")
	result := make([]money.Currency, 0, len(parts))
	seen := make(map[money.Currency]bool, len(parts))
	for _, part := range parts {
		c := money.ParseCurrency(part)
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		result = append(result, c)
	}
	return result
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
