package pricing_test

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/fx"
	"github.com/noah-isme/travel-pricing/internal/money"
)

type staticSource map[money.Currency]map[money.Currency]string

func (s staticSource) Rates(_ context.Context, base money.Currency) (map[money.Currency]decimal.Decimal, error) {
	quotes, ok := s[base]
	if !ok {
		return nil, errors.New("no rates for " + string(base))
	}
	out := make(map[money.Currency]decimal.Decimal, len(quotes))
	for cur, r := range quotes {
		out[cur] = decimal.RequireFromString(r)
	}
	return out, nil
}

func converter(src fx.RateSource, spread string) *fx.Converter {
	return fx.NewConverter(fx.ConverterConfig{
		Source:   src,
		Fallback: fx.DefaultFallback(),
		Spread:   decimal.RequireFromString(spread),
	})
}

func gbp(s string) money.Money { return money.MustParse(s, money.GBP) }
func eur(s string) money.Money { return money.MustParse(s, money.EUR) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 14, 0, 0, 0, time.UTC)
}
