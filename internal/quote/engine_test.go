package quote_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/travel-pricing/internal/clock"
	"github.com/noah-isme/travel-pricing/internal/fx"
	"github.com/noah-isme/travel-pricing/internal/installment"
	"github.com/noah-isme/travel-pricing/internal/money"
	"github.com/noah-isme/travel-pricing/internal/pricing"
	"github.com/noah-isme/travel-pricing/internal/quote"
)

var booked = time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)

type rates map[money.Currency]map[money.Currency]string

func (r rates) Rates(_ context.Context, base money.Currency) (map[money.Currency]decimal.Decimal, error) {
	quotes, ok := r[base]
	if !ok {
		return nil, errors.New("provider unavailable")
	}
	out := make(map[money.Currency]decimal.Decimal, len(quotes))
	for cur, v := range quotes {
		out[cur] = decimal.RequireFromString(v)
	}
	return out, nil
}

func newEngine(t *testing.T, src fx.RateSource, logs *bytes.Buffer) *quote.Engine {
	t.Helper()
	logger := zerolog.Nop()
	if logs != nil {
		logger = zerolog.New(logs)
	}
	conv := fx.NewConverter(fx.ConverterConfig{
		Source:   src,
		Fallback: fx.DefaultFallback(),
		Clock:    clock.NewFixed(booked),
		Spread:   fx.DefaultSpread,
		Logger:   logger,
	})
	engine, err := quote.NewEngine(quote.Config{
		Aggregator: pricing.NewAggregator(nil, conv, logger),
		Scheduler:  installment.Scheduler{Clock: clock.NewFixed(booked)},
		Policy: pricing.TenantPricingPolicy{
			MarkupRate:     decimal.RequireFromString("0.10"),
			ExemptTenantID: "team-exempt",
			Currency:       money.GBP,
		},
		Logger: logger,
	})
	require.NoError(t, err)
	return engine
}

func gbp(s string) money.Money { return money.MustParse(s, money.GBP) }

// tickets 1000 + hotel 500 with no extra nights + nothing else
func raceWeekend() []pricing.Component {
	return []pricing.Component{
		pricing.Ticket{Quantity: 2, UnitPrice: gbp("500")},
		pricing.HotelStay{
			Quantity:         1,
			CheckIn:          time.Date(2026, time.July, 3, 0, 0, 0, 0, time.UTC),
			CheckOut:         time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC),
			BaseCheckIn:      time.Date(2026, time.July, 3, 0, 0, 0, 0, time.UTC),
			BaseCheckOut:     time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC),
			BasePricePerStay: gbp("500"),
			ExtraNightPrice:  gbp("120"),
		},
		pricing.Absent{Of: pricing.KindAirportTransfer},
		pricing.Absent{Of: pricing.KindLoungePass},
	}
}

func TestPriceFullPass(t *testing.T) {
	var logs bytes.Buffer
	engine := newEngine(t, rates{money.GBP: {money.EUR: "1.15"}}, &logs)

	res, err := engine.Price(context.Background(), quote.Request{
		TenantID:        "team-7",
		DisplayCurrency: money.EUR,
		Components:      raceWeekend(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.PassID)
	require.False(t, res.Degraded)
	require.Empty(t, res.Warnings)

	q := res.Quote
	require.Equal(t, "1500.00 GBP", q.Subtotal.String())
	require.Equal(t, "150.00 GBP", q.MarkupAmount.String())
	require.Equal(t, "1698.00 GBP", q.Total.String())
	require.True(t, q.ExchangeRate.Equal(decimal.RequireFromString("1.2075")))
	require.Equal(t, "2050.34 EUR", q.DisplayTotal.String())

	require.NotNil(t, res.Schedule)
	for _, in := range res.Schedule.Installments {
		require.Equal(t, "566.00 GBP", in.Amount.String())
	}
	require.Contains(t, logs.String(), `"message":"quote_priced"`)
	require.Contains(t, logs.String(), res.PassID)
}

func TestPriceExemptTenant(t *testing.T) {
	engine := newEngine(t, rates{}, nil)

	res, err := engine.Price(context.Background(), quote.Request{TenantID: "team-exempt", Components: raceWeekend()})
	require.NoError(t, err)
	require.Equal(t, "1498.00 GBP", res.Quote.Total.String())
	require.True(t, res.Schedule.Sum().Equal(gbp("1498")))
}

func TestPriceDegradedConversionIsAWarning(t *testing.T) {
	engine := newEngine(t, rates{}, nil)

	res, err := engine.Price(context.Background(), quote.Request{
		TenantID:        "team-7",
		DisplayCurrency: money.EUR,
		Components:      raceWeekend(),
	})
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, fx.SourceFallback, res.Quote.RateSource)
	// 1.17 * 1.05
	require.True(t, res.Quote.ExchangeRate.Equal(decimal.RequireFromString("1.2285")))
}

func TestPriceEmptySelectionHasNoSchedule(t *testing.T) {
	engine := newEngine(t, rates{}, nil)

	res, err := engine.Price(context.Background(), quote.Request{
		Components: []pricing.Component{pricing.Absent{Of: pricing.KindLoungePass}},
	})
	require.NoError(t, err)
	require.True(t, res.Quote.Empty)
	require.Nil(t, res.Schedule)
}

func TestPriceHonoursEventStart(t *testing.T) {
	engine := newEngine(t, rates{}, nil)
	event := time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC)

	res, err := engine.Price(context.Background(), quote.Request{TenantID: "team-7", Components: raceWeekend(), EventStart: &event})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), res.Schedule.Installments[2].DueDate)
}

func TestPriceManualScheduleOverride(t *testing.T) {
	engine := newEngine(t, rates{}, nil)
	due := time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC)

	res, err := engine.Price(context.Background(), quote.Request{
		TenantID:   "team-7",
		Components: raceWeekend(),
		Schedule: []installment.Installment{
			{Type: installment.TypeDeposit, Amount: gbp("698"), DueDate: due},
			{Type: installment.TypeSecond, Amount: gbp("500"), DueDate: due},
			{Type: installment.TypeFinal, Amount: gbp("400"), DueDate: due},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Schedule.Manual)
	require.Equal(t, "500.00 GBP", res.Schedule.Installments[2].Amount.String())
	require.Equal(t, due, res.Schedule.Installments[2].DueDate)
}

func TestPriceRejectsUnusableOverride(t *testing.T) {
	engine := newEngine(t, rates{}, nil)

	_, err := engine.Price(context.Background(), quote.Request{
		TenantID:   "team-7",
		Components: raceWeekend(),
		Schedule:   []installment.Installment{{Type: installment.TypeDeposit, Amount: gbp("100"), DueDate: booked}},
	})
	require.ErrorIs(t, err, installment.ErrInvalidOverride)
}

func TestPriceInvalidComponentWarning(t *testing.T) {
	engine := newEngine(t, rates{}, nil)
	components := append(raceWeekend(), pricing.Flight{Passengers: 0, UnitPrice: gbp("300")})

	res, err := engine.Price(context.Background(), quote.Request{TenantID: "team-7", Components: components})
	require.NoError(t, err)
	require.Equal(t, "1698.00 GBP", res.Quote.Total.String())
	require.Len(t, res.Warnings, 1)
	require.True(t, strings.Contains(res.Warnings[0], "flight"))
}

func TestNewEngineValidatesPolicy(t *testing.T) {
	_, err := quote.NewEngine(quote.Config{
		Aggregator: pricing.NewAggregator(nil, nil, zerolog.Nop()),
		Policy:     pricing.TenantPricingPolicy{Currency: "XXX"},
	})
	require.ErrorIs(t, err, pricing.ErrInvalidPolicy)

	_, err = quote.NewEngine(quote.Config{Policy: pricing.TenantPricingPolicy{Currency: money.GBP}})
	require.Error(t, err)
}
