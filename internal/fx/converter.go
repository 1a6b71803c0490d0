package fx

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/travel-pricing/internal/clock"
	"github.com/noah-isme/travel-pricing/internal/money"
	"github.com/noah-isme/travel-pricing/internal/obs"
)

const (
	// DefaultTTL is how long a fetched market rate is trusted.
	DefaultTTL = 5 * time.Minute
	// DefaultTimeout bounds a single provider fetch.
	DefaultTimeout = 3 * time.Second
)

// DefaultSpread is the margin added on top of market rates when quoting.
var DefaultSpread = decimal.RequireFromString("0.05")

// ConverterConfig wires a Converter.
type ConverterConfig struct {
	Source   RateSource
	Cache    RateCache
	Fallback FallbackTable
	Clock    clock.Clock
	TTL      time.Duration
	Timeout  time.Duration
	// Spread is added to every non-identity market rate: quoted = market * (1 + Spread).
	Spread decimal.Decimal
	Logger zerolog.Logger
}

// Converter converts money between currencies. It never fails: degraded
// conversions are reported through Quote.Warning.
type Converter struct {
	source   RateSource
	cache    RateCache
	fallback FallbackTable
	clock    clock.Clock
	ttl      time.Duration
	timeout  time.Duration
	spread   decimal.Decimal
	logger   zerolog.Logger
}

// NewConverter applies defaults to cfg. A nil cache gets an in-memory cache.
func NewConverter(cfg ConverterConfig) *Converter {
	c := &Converter{
		source:   cfg.Source,
		cache:    cfg.Cache,
		fallback: cfg.Fallback,
		clock:    clock.Or(cfg.Clock),
		ttl:      cfg.TTL,
		timeout:  cfg.Timeout,
		spread:   cfg.Spread,
		logger:   cfg.Logger,
	}
	if c.cache == nil {
		c.cache = NewMemoryCache(c.clock)
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.spread.IsNegative() {
		c.spread = decimal.Zero
	}
	return c
}

// Quote is the rate chosen for a pair.
type Quote struct {
	Pair Pair
	// Rate includes the spread; MarketRate does not.
	Rate       decimal.Decimal
	MarketRate decimal.Decimal
	Source     Source
	Warning    error
}

// Conversion is the result of converting an amount.
type Conversion struct {
	Original money.Money
	Amount   money.Money
	Quote
}

// Degraded reports whether the conversion used fallback or unconverted values.
func (c Conversion) Degraded() bool {
	return c.Warning != nil
}

// Convert converts amount into currency to, rounding to two places.
// Same-currency conversions return amount untouched. When no rate can be
// found the original amount is returned with a warning.
func (c *Converter) Convert(ctx context.Context, amount money.Money, to money.Currency) Conversion {
	q := c.Rate(ctx, amount.Currency, to)
	conv := Conversion{Original: amount, Quote: q}
	if q.Source == SourceIdentity || q.Source == SourceUnconverted {
		conv.Amount = amount
		return conv
	}
	conv.Amount = money.New(amount.Amount.Mul(q.Rate), to)
	return conv
}

// Rate resolves the quoted rate for from -> to.
func (c *Converter) Rate(ctx context.Context, from, to money.Currency) Quote {
	pair := Pair{From: from, To: to}
	if from == to {
		return Quote{Pair: pair, Rate: decimal.NewFromInt(1), MarketRate: decimal.NewFromInt(1), Source: SourceIdentity}
	}

	ctx, span := otel.Tracer("travel-pricing/fx").Start(ctx, "fx.rate")
	defer span.End()
	span.SetAttributes(attribute.String("fx.pair", pair.String()))

	q := c.resolve(ctx, pair)
	span.SetAttributes(attribute.String("fx.source", string(q.Source)))
	if q.Warning != nil {
		span.SetStatus(codes.Error, q.Warning.Error())
		c.logger.Warn().Err(q.Warning).Str("pair", pair.String()).Str("source", string(q.Source)).Msg("fx_conversion_degraded")
		if obs.FXConversionDegradedTotal != nil {
			obs.FXConversionDegradedTotal.WithLabelValues(string(q.Source)).Inc()
		}
	}
	if obs.FXLookupsTotal != nil {
		obs.FXLookupsTotal.WithLabelValues(string(q.Source)).Inc()
	}
	return q
}

func (c *Converter) resolve(ctx context.Context, pair Pair) Quote {
	if market, ok := c.cached(ctx, pair); ok {
		return c.quote(pair, market, SourceCache, nil)
	}

	rates, cause := c.fetch(ctx, pair)
	if cause == nil {
		if market, ok := rates[pair.To]; ok && market.IsPositive() {
			return c.quote(pair, market, SourceLive, nil)
		}
		cause = ErrRateUnavailable
	}

	if market, ok := c.fallback.Rate(pair); ok {
		return c.quote(pair, market, SourceFallback, &DegradedError{Pair: pair, Source: SourceFallback, Cause: cause})
	}
	one := decimal.NewFromInt(1)
	return Quote{
		Pair:       pair,
		Rate:       one,
		MarketRate: one,
		Source:     SourceUnconverted,
		Warning:    &DegradedError{Pair: pair, Source: SourceUnconverted, Cause: cause},
	}
}

func (c *Converter) quote(pair Pair, market decimal.Decimal, src Source, warning error) Quote {
	return Quote{
		Pair:       pair,
		Rate:       market.Mul(decimal.NewFromInt(1).Add(c.spread)),
		MarketRate: market,
		Source:     src,
		Warning:    warning,
	}
}

func (c *Converter) cached(ctx context.Context, pair Pair) (decimal.Decimal, bool) {
	entry, ok, err := c.cache.Get(ctx, pair)
	if err != nil {
		c.logger.Warn().Err(err).Str("pair", pair.String()).Msg("fx_cache_read_failed")
		return decimal.Zero, false
	}
	if !ok || !entry.Rate.IsPositive() {
		return decimal.Zero, false
	}
	if c.clock.Now().Sub(entry.FetchedAt) >= c.ttl {
		return decimal.Zero, false
	}
	return entry.Rate, true
}

// fetch pulls every rate for pair.From and stores them. A fetch that
// succeeds without the requested currency still populates the cache.
func (c *Converter) fetch(ctx context.Context, pair Pair) (map[money.Currency]decimal.Decimal, error) {
	if c.source == nil {
		return nil, ErrNoSource
	}
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.clock.Now()
	rates, err := c.source.Rates(fetchCtx, pair.From)
	if obs.FXFetchDuration != nil {
		obs.FXFetchDuration.Observe(obs.DurationMillis(c.clock.Now().Sub(start)))
	}
	if err != nil {
		return nil, err
	}
	fetchedAt := c.clock.Now()
	stored := storeRates(ctx, c.cache, pair.From, rates, fetchedAt, c.ttl, c.logger)
	c.logger.Debug().Str("base", string(pair.From)).Int("rates", stored).Msg("fx_rate_fetched")
	return rates, nil
}

func storeRates(ctx context.Context, cache RateCache, base money.Currency, rates map[money.Currency]decimal.Decimal, at time.Time, ttl time.Duration, logger zerolog.Logger) int {
	stored := 0
	for cur, rate := range rates {
		if cur == base || !rate.IsPositive() {
			continue
		}
		p := Pair{From: base, To: cur}
		if err := cache.Put(ctx, p, Entry{Rate: rate, FetchedAt: at}, ttl); err != nil {
			logger.Warn().Err(err).Str("pair", p.String()).Msg("fx_cache_write_failed")
			continue
		}
		stored++
	}
	return stored
}
