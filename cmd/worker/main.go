package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/travel-pricing/internal/app"
	"github.com/noah-isme/travel-pricing/internal/config"
	"github.com/noah-isme/travel-pricing/internal/health"
	"github.com/noah-isme/travel-pricing/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("build dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	warmer, err := deps.NewWarmer()
	if err != nil {
		logger.Fatal().Err(err).Msg("build fx warmer")
	}

	if addr := cfg.Obs.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		health.Handler{Checks: map[string]health.Check{
			"redis":    func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
			"fx_cache": warmer.Check,
		}}.Mount(mux)
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics listener")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().Strs("bases", currencies(cfg)).Dur("interval", cfg.FXWarmInterval).Msg("worker starting")
	if err := warmer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func currencies(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.FXWarmCurrencies))
	for _, c := range cfg.FXWarmCurrencies {
		out = append(out, c.String())
	}
	return out
}
