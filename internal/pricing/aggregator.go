package pricing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/fx"
	"github.com/noah-isme/travel-pricing/internal/money"
	"github.com/noah-isme/travel-pricing/internal/obs"
	"github.com/noah-isme/travel-pricing/internal/tenant"
)

// Converter is the slice of the FX converter the aggregator needs.
type Converter interface {
	Convert(ctx context.Context, amount money.Money, to money.Currency) fx.Conversion
}

// QuoteTotal is the bindable price of a selection.
type QuoteTotal struct {
	Subtotal     money.Money `json:"subtotal"`
	MarkupAmount money.Money `json:"markup_amount"`
	// RawTotal is subtotal + markup before canonical rounding.
	RawTotal         money.Money     `json:"raw_total"`
	Total            money.Money     `json:"total"`
	CommissionAmount money.Money     `json:"commission_amount"`
	DisplayCurrency  money.Currency  `json:"display_currency"`
	DisplayTotal     money.Money     `json:"display_total"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	RateSource       fx.Source       `json:"rate_source"`
	// Empty is set when nothing priced above zero; Total is then 0.
	Empty    bool    `json:"empty"`
	Lines    []Line  `json:"lines"`
	Warnings []error `json:"-"`
}

// Degraded reports whether any conversion fell back or stayed unconverted.
func (q QuoteTotal) Degraded() bool {
	for _, w := range q.Warnings {
		if errors.Is(w, fx.ErrConversionDegraded) {
			return true
		}
	}
	return false
}

// Request is the input to one aggregation pass.
type Request struct {
	// TenantID decides markup exemption; when empty the tenant on ctx is used.
	TenantID        string
	Components      []Component
	Policy          TenantPricingPolicy
	DisplayCurrency money.Currency
}

// Aggregator sums component prices into a quote total.
type Aggregator struct {
	pricer    *Pricer
	converter Converter
	logger    zerolog.Logger
}

// NewAggregator wires an aggregator. A nil pricer gets NewPricer().
func NewAggregator(pricer *Pricer, converter Converter, logger zerolog.Logger) *Aggregator {
	if pricer == nil {
		pricer = NewPricer()
	}
	return &Aggregator{pricer: pricer, converter: converter, logger: logger}
}

// Aggregate prices every component, applies the tenant markup once, rounds
// the result and converts it for display. Only an unusable policy is an error;
// invalid components and degraded conversions are returned as warnings.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (QuoteTotal, error) {
	policy := req.Policy
	if err := policy.Validate(); err != nil {
		return QuoteTotal{}, err
	}
	tenantID := tenant.Resolve(ctx, req.TenantID)
	base := policy.Currency

	q := QuoteTotal{Lines: make([]Line, 0, len(req.Components))}
	subtotal := money.Zero(base)
	for i, c := range req.Components {
		line, err := a.pricer.Price(c)
		if err != nil {
			var invalid *InvalidSelectionError
			if errors.As(err, &invalid) {
				invalid.Index = i
			}
			q.Warnings = append(q.Warnings, err)
			if obs.InvalidComponentsTotal != nil {
				obs.InvalidComponentsTotal.WithLabelValues(string(line.Kind)).Inc()
			}
			a.logger.Info().Err(err).Int("index", i).Msg("component_invalid")
			q.Lines = append(q.Lines, line)
			continue
		}
		if line.Status != LineIncluded {
			q.Lines = append(q.Lines, line)
			continue
		}
		subtotal = subtotal.Add(a.inBase(ctx, line.Amount, base, &q))
		q.Lines = append(q.Lines, line)
	}

	q.Subtotal = subtotal.Rounded()
	q.MarkupAmount = q.Subtotal.Mul(policy.MarkupFor(tenantID))
	q.RawTotal = q.Subtotal.Add(q.MarkupAmount)

	total, err := policy.rounding().apply(q.RawTotal.Amount)
	switch {
	case errors.Is(err, ErrEmptyQuote):
		q.Empty = true
		q.Total = money.Zero(base)
	case err != nil:
		return QuoteTotal{}, err
	default:
		q.Total = money.New(total, base)
	}
	q.CommissionAmount = q.Total.Mul(policy.CommissionRate)

	display := req.DisplayCurrency
	if display == "" {
		display = base
	}
	q.DisplayCurrency = display
	conv := a.convert(ctx, q.Total, display)
	q.DisplayTotal = conv.Amount
	q.ExchangeRate = conv.Rate
	q.RateSource = conv.Source
	if conv.Warning != nil {
		q.Warnings = append(q.Warnings, conv.Warning)
	}
	return q, nil
}

// inBase converts a line amount into the policy currency. An unconverted
// amount keeps its number so the pass still yields a price; the warning
// tells the caller the figure is approximate.
func (a *Aggregator) inBase(ctx context.Context, amount money.Money, base money.Currency, q *QuoteTotal) money.Money {
	if amount.Currency == base {
		return amount
	}
	conv := a.convert(ctx, amount, base)
	if conv.Warning != nil {
		q.Warnings = append(q.Warnings, conv.Warning)
	}
	return money.Money{Amount: conv.Amount.Amount, Currency: base}
}

func (a *Aggregator) convert(ctx context.Context, amount money.Money, to money.Currency) fx.Conversion {
	if a.converter == nil || amount.Currency == to {
		one := decimal.NewFromInt(1)
		if amount.Currency == to {
			return fx.Conversion{Original: amount, Amount: amount, Quote: fx.Quote{Pair: fx.Pair{From: to, To: to}, Rate: one, MarketRate: one, Source: fx.SourceIdentity}}
		}
		pair := fx.Pair{From: amount.Currency, To: to}
		return fx.Conversion{
			Original: amount,
			Amount:   amount,
			Quote: fx.Quote{
				Pair:       pair,
				Rate:       one,
				MarketRate: one,
				Source:     fx.SourceUnconverted,
				Warning:    &fx.DegradedError{Pair: pair, Source: fx.SourceUnconverted, Cause: fx.ErrNoSource},
			},
		}
	}
	return a.converter.Convert(ctx, amount, to)
}
