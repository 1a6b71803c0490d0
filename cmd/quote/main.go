package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noah-isme/travel-pricing/internal/app"
	"github.com/noah-isme/travel-pricing/internal/config"
	"github.com/noah-isme/travel-pricing/internal/obs"
	"github.com/noah-isme/travel-pricing/internal/quote"
	"github.com/noah-isme/travel-pricing/internal/tenant"
)

func main() {
	input := flag.String("in", "-", "quote request JSON file, - for stdin")
	tenantID := flag.String("tenant", "", "tenant id used when the request carries none")
	pretty := flag.Bool("pretty", false, "indent the JSON output")
	flag.Parse()

	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "quote").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   cfg.Obs.ServiceName,
			Endpoint:      cfg.Obs.TracingEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.TracingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("init tracer")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
		}
	}

	deps, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("build pricing engine")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	req, err := readRequest(*input)
	if err != nil {
		logger.Fatal().Err(err).Msg("read quote request")
	}
	ctx = tenant.WithTenant(ctx, *tenantID)

	res, err := deps.Engine.Price(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("price quote")
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		logger.Fatal().Err(err).Msg("write result")
	}
}

func readRequest(path string) (quote.Request, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return quote.Request{}, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	return quote.DecodeRequest(r)
}
