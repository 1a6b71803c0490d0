package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places kept at every monetary boundary.
const Places = 2

// Currency is an ISO 4217 currency code.
type Currency string

// Common currencies used by the static fallback table and defaults.
const (
	GBP Currency = "GBP"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// ParseCurrency normalises a currency code to upper case.
func ParseCurrency(code string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(code)))
}

// Valid reports whether c looks like a three letter code.
func (c Currency) Valid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (c Currency) String() string { return string(c) }

// UnmarshalJSON accepts codes in any case, so "gbp" decodes as GBP.
func (c *Currency) UnmarshalJSON(b []byte) error {
	var code string
	if err := json.Unmarshal(b, &code); err != nil {
		return fmt.Errorf("money: currency: %w", err)
	}
	*c = ParseCurrency(code)
	return nil
}

// Money is an amount in a given currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// New builds a Money value rounded to two places.
func New(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: Round(amount), Currency: currency}
}

// FromString parses a decimal string such as "1250.50".
func FromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", amount, err)
	}
	return New(d, currency), nil
}

// MustParse is FromString that panics on malformed input. Intended for tests and constants.
func MustParse(amount string, currency Currency) Money {
	m, err := FromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in currency.
func Zero(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Round rounds d to two places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Add returns m + o. Both values must share a currency.
func (m Money) Add(o Money) Money {
	m.mustMatch(o)
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}
}

// Sub returns m - o. Both values must share a currency.
func (m Money) Sub(o Money) Money {
	m.mustMatch(o)
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}
}

// Mul multiplies by a decimal factor and rounds the result.
func (m Money) Mul(f decimal.Decimal) Money {
	return New(m.Amount.Mul(f), m.Currency)
}

// MulInt multiplies by an integer quantity. No rounding is needed.
func (m Money) MulInt(n int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(n))), Currency: m.Currency}
}

// Rounded returns m rounded to two places.
func (m Money) Rounded() Money {
	return New(m.Amount, m.Currency)
}

// Equal compares amount and currency.
func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

// String renders "1250.50 GBP".
func (m Money) String() string {
	return m.Amount.StringFixed(Places) + " " + string(m.Currency)
}

func (m Money) mustMatch(o Money) {
	if m.Currency != o.Currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.Currency, o.Currency))
	}
}
