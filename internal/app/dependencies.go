// Package app wires configuration into the pricing engine and its
// collaborators so both commands build them the same way.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/travel-pricing/internal/config"
	"github.com/noah-isme/travel-pricing/internal/fx"
	"github.com/noah-isme/travel-pricing/internal/installment"
	"github.com/noah-isme/travel-pricing/internal/lock"
	"github.com/noah-isme/travel-pricing/internal/obs"
	"github.com/noah-isme/travel-pricing/internal/pricing"
	"github.com/noah-isme/travel-pricing/internal/quote"
	"github.com/noah-isme/travel-pricing/internal/resilience"
)

// Dependencies enumerates the services shared by the commands.
type Dependencies struct {
	Config          *config.Config
	Logger          zerolog.Logger
	Redis           *redis.Client
	Cache           fx.RateCache
	Source          fx.RateSource
	Converter       *fx.Converter
	Engine          *quote.Engine
	MetricsRegistry prometheus.Registerer
}

// Close releases the Redis connection when one was opened.
func (d *Dependencies) Close() error {
	if d.Redis == nil {
		return nil
	}
	return d.Redis.Close()
}

// New builds the engine described by cfg. Redis is only dialled for the
// redis cache backend. A nil registry uses the default registerer.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*Dependencies, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, reg)
	resilience.RegisterMetrics(cfg.Obs.MetricsNamespace, reg)

	deps := &Dependencies{Config: cfg, Logger: logger, MetricsRegistry: reg}
	switch cfg.FXCacheBackend {
	case config.CacheRedis:
		client, err := NewRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
		deps.Cache = fx.NewRedisCache(client, "")
	default:
		deps.Cache = fx.NewMemoryCache(nil)
	}
	deps.Source = NewRateSource(cfg, logger)

	deps.Converter = fx.NewConverter(fx.ConverterConfig{
		Source:   deps.Source,
		Cache:    deps.Cache,
		Fallback: fx.DefaultFallback(),
		TTL:      cfg.FXCacheTTL,
		Timeout:  cfg.FXFetchTimeout,
		Spread:   cfg.FXSpread,
		Logger:   logger,
	})
	engine, err := quote.NewEngine(quote.Config{
		Aggregator: pricing.NewAggregator(nil, deps.Converter, logger),
		Scheduler:  installment.Scheduler{EventBuffer: cfg.ScheduleEventBuffer},
		Policy:     cfg.Policy(),
		Logger:     logger,
	})
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Engine = engine
	return deps, nil
}

// NewRateSource returns the HTTP provider client, or nil when no provider is
// configured so every conversion takes the fallback path.
func NewRateSource(cfg *config.Config, logger zerolog.Logger) fx.RateSource {
	if cfg.FXAPIBaseURL == "" {
		return nil
	}
	return fx.HTTPSource{
		BaseURL: cfg.FXAPIBaseURL,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{},
			Breaker:     resilience.NewBreaker("fx-provider", cfg.Circuit, resilience.WithLogger(logger)),
			BaseBackoff: cfg.Retry.Base,
			MaxAttempts: cfg.Retry.MaxAttempts,
			Jitter:      cfg.Retry.JitterPercent,
			Timeout:     cfg.FXFetchTimeout,
			Target:      "fx-provider",
			Logger:      &logger,
		},
	}
}

// NewRedis dials and instruments a Redis client.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewWarmer builds the FX cache warmer. It requires the redis backend so
// refreshed rates are visible to every pricing process.
func (d *Dependencies) NewWarmer() (*fx.Warmer, error) {
	if d.Redis == nil {
		return nil, fmt.Errorf("fx warmer needs FX_CACHE_BACKEND=%s", config.CacheRedis)
	}
	if d.Source == nil {
		return nil, errors.New("fx warmer needs FX_API_BASE_URL")
	}
	cfg := d.Config
	return &fx.Warmer{
		Source:   d.Source,
		Cache:    d.Cache,
		Bases:    cfg.FXWarmCurrencies,
		TTL:      cfg.FXCacheTTL,
		Interval: cfg.FXWarmInterval,
		Timeout:  cfg.FXFetchTimeout,
		Locker:   lock.Locker{R: d.Redis, RetryBackoff: cfg.LockRetryBackoff},
		LockKey:  "fx:warm:lock",
		LockTTL:  cfg.LockTTL,
		Logger:   d.Logger.With().Str("component", "fx_warmer").Logger(),
	}, nil
}
