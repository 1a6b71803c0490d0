package money_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/travel-pricing/internal/money"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := map[string]string{
		"1.005":  "1.01",
		"1.004":  "1",
		"-1.005": "-1.01",
		"2.675":  "2.68",
		"566":    "566",
	}
	for in, want := range cases {
		got := money.Round(decimal.RequireFromString(in))
		require.True(t, got.Equal(decimal.RequireFromString(want)), "round(%s) = %s", in, got)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := money.MustParse("100.10", money.GBP)
	b := money.MustParse("0.20", money.GBP)

	require.Equal(t, "100.30 GBP", a.Add(b).String())
	require.Equal(t, "99.90 GBP", a.Sub(b).String())
	require.Equal(t, "300.30 GBP", a.MulInt(3).String())
	require.Equal(t, "33.36 GBP", a.Mul(decimal.RequireFromString("0.3333")).String())
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	require.Panics(t, func() {
		money.Zero(money.GBP).Add(money.Zero(money.EUR))
	})
}

func TestParseCurrency(t *testing.T) {
	require.Equal(t, money.EUR, money.ParseCurrency(" eur "))
	require.True(t, money.EUR.Valid())
	require.False(t, money.Currency("EU").Valid())
	require.False(t, money.Currency("e1r").Valid())
}

func TestMoneyUnmarshalNormalisesCurrency(t *testing.T) {
	var m money.Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount": "12.5", "currency": " eur"}`), &m))
	require.Equal(t, money.EUR, m.Currency)
	require.Equal(t, "12.50 EUR", m.String())

	require.Error(t, json.Unmarshal([]byte(`{"amount": "1", "currency": 978}`), &m))
}
