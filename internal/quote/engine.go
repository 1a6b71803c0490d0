// Package quote runs a full pricing pass: components are priced and
// aggregated under the tenant policy, converted for display, and split into
// a payment schedule.
package quote

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/travel-pricing/internal/installment"
	"github.com/noah-isme/travel-pricing/internal/obs"
	"github.com/noah-isme/travel-pricing/internal/pricing"
)

// Result is what a pass hands back to the calling layer.
type Result struct {
	PassID   string                `json:"pass_id"`
	Quote    pricing.QuoteTotal    `json:"quote"`
	Schedule *installment.Schedule `json:"schedule,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
	// Degraded is set when any rate came from the fallback table or was missing.
	Degraded bool `json:"degraded"`
}

// Config wires an Engine.
type Config struct {
	Aggregator *pricing.Aggregator
	Scheduler  installment.Scheduler
	Policy     pricing.TenantPricingPolicy
	Logger     zerolog.Logger
}

// Engine is safe for concurrent use; it keeps no state between passes.
type Engine struct {
	agg    *pricing.Aggregator
	sched  installment.Scheduler
	policy pricing.TenantPricingPolicy
	logger zerolog.Logger
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Aggregator == nil {
		return nil, errors.New("quote: aggregator required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{agg: cfg.Aggregator, sched: cfg.Scheduler, policy: cfg.Policy, logger: cfg.Logger}, nil
}

// Price runs one pass. Only a schedule that cannot be reconciled or a
// rejected manual override is returned as an error; everything else is a
// warning on the result.
func (e *Engine) Price(ctx context.Context, req Request) (Result, error) {
	res := Result{PassID: uuid.NewString()}
	ctx, span := otel.Tracer("travel-pricing/quote").Start(ctx, "quote.price")
	defer span.End()
	span.SetAttributes(
		attribute.String("quote.pass_id", res.PassID),
		attribute.Int("quote.components", len(req.Components)),
	)
	logger := obs.WithTrace(ctx, e.logger).With().Str("pass_id", res.PassID).Logger()

	q, err := e.agg.Aggregate(ctx, pricing.Request{
		TenantID:        req.TenantID,
		Components:      req.Components,
		Policy:          e.policy,
		DisplayCurrency: req.DisplayCurrency,
	})
	if err != nil {
		return e.fail(span, logger, res, err)
	}
	res.Quote = q
	res.Degraded = q.Degraded()
	for _, w := range q.Warnings {
		res.Warnings = append(res.Warnings, w.Error())
	}

	if !q.Empty {
		var sched installment.Schedule
		if len(req.Schedule) > 0 {
			sched, err = e.sched.Override(q.Total, req.Schedule)
		} else {
			sched, err = e.sched.Schedule(q.Total, req.EventStart)
		}
		if err != nil {
			return e.fail(span, logger, res, err)
		}
		res.Schedule = &sched
	}

	outcome := "ok"
	switch {
	case q.Empty:
		outcome = "empty"
	case res.Degraded:
		outcome = "degraded"
	}
	if obs.QuotePassesTotal != nil {
		obs.QuotePassesTotal.WithLabelValues(outcome).Inc()
	}
	span.SetAttributes(attribute.String("quote.outcome", outcome))
	logger.Info().
		Str("outcome", outcome).
		Str("total", q.Total.String()).
		Str("display_total", q.DisplayTotal.String()).
		Str("rate_source", string(q.RateSource)).
		Int("warnings", len(res.Warnings)).
		Msg("quote_priced")
	return res, nil
}

func (e *Engine) fail(span trace.Span, logger zerolog.Logger, res Result, err error) (Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if obs.QuotePassesTotal != nil {
		obs.QuotePassesTotal.WithLabelValues("error").Inc()
	}
	logger.Error().Err(err).Msg("quote_failed")
	return Result{PassID: res.PassID}, err
}
