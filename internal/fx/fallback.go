package fx

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/money"
)

// FallbackTable holds static market rates used when the provider is unreachable.
type FallbackTable map[Pair]decimal.Decimal

// DefaultFallback returns the static table for the common EUR/GBP/USD pairs.
func DefaultFallback() FallbackTable {
	return FallbackTable{
		{From: money.EUR, To: money.GBP}: decimal.RequireFromString("0.85"),
		{From: money.GBP, To: money.EUR}: decimal.RequireFromString("1.17"),
		{From: money.USD, To: money.GBP}: decimal.RequireFromString("0.79"),
		{From: money.GBP, To: money.USD}: decimal.RequireFromString("1.27"),
		{From: money.EUR, To: money.USD}: decimal.RequireFromString("1.08"),
		{From: money.USD, To: money.EUR}: decimal.RequireFromString("0.93"),
	}
}

// Rate looks up a static rate for pair.
func (t FallbackTable) Rate(pair Pair) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	r, ok := t[pair]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}
