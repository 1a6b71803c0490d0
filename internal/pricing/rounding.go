package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/money"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Rounding selects how a raw total becomes the client price.
type Rounding string

const (
	// RoundingCanonical rounds up to the next hundred and subtracts two.
	RoundingCanonical Rounding = "canonical"
	// RoundingCents only rounds to two decimal places.
	RoundingCents Rounding = "cents"
)

// RoundTotal applies ceil(raw/100)*100 - 2. Totals that are not positive
// have no meaningful canonical price and return ErrEmptyQuote instead of -2.
func RoundTotal(raw decimal.Decimal) (decimal.Decimal, error) {
	if !raw.IsPositive() {
		return decimal.Zero, ErrEmptyQuote
	}
	return raw.Div(hundred).Ceil().Mul(hundred).Sub(two), nil
}

func (r Rounding) apply(raw decimal.Decimal) (decimal.Decimal, error) {
	if r == RoundingCents {
		if !raw.IsPositive() {
			return decimal.Zero, ErrEmptyQuote
		}
		return money.Round(raw), nil
	}
	return RoundTotal(raw)
}
