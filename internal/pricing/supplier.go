package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/fx"
	"github.com/noah-isme/travel-pricing/internal/money"
)

// SupplierRate is a back-office room rate as contracted with the hotel.
type SupplierRate struct {
	PricePerNight money.Money `json:"price_per_night"`
	// VATPercent is a percentage, 20 means 20%.
	VATPercent     decimal.Decimal `json:"vat_percent"`
	CityTax        decimal.Decimal `json:"city_tax"`
	ResortFee      decimal.Decimal `json:"resort_fee"`
	BreakfastPrice decimal.Decimal `json:"breakfast_price"`
	MaxPeople      int             `json:"max_people"`
	Nights         int             `json:"nights"`
}

// SupplierCost is the cost of a room in the tenant currency.
type SupplierCost struct {
	TotalPerNight     money.Money     `json:"total_supplier_price_per_night"`
	EffectiveRate     decimal.Decimal `json:"effective_rate"`
	PerNightTarget    money.Money     `json:"total_price_per_night_target_currency"`
	PerStay           money.Money     `json:"total_price_per_stay"`
	ConversionSource  fx.Source       `json:"conversion_source"`
	ConversionWarning error           `json:"-"`
}

// EffectiveRate derives the applied FX rate from a converted unit price.
// A zero unit price has no observable rate and yields 1.
func EffectiveRate(unit, converted decimal.Decimal) decimal.Decimal {
	if unit.IsZero() {
		return decimal.NewFromInt(1)
	}
	return converted.Div(unit)
}

// SupplierCostFor computes the per-night and per-stay supplier cost given the
// unit price and the same price already converted to the target currency.
func SupplierCostFor(r SupplierRate, converted money.Money) SupplierCost {
	unit := r.PricePerNight
	rate := decimal.NewFromInt(1)
	if converted.Currency != unit.Currency {
		rate = EffectiveRate(unit.Amount, converted.Amount)
	}
	people := decimal.NewFromInt(int64(max(r.MaxPeople, 0)))

	perNight := unit.Amount.
		Add(unit.Amount.Mul(r.VATPercent).Div(hundred)).
		Add(r.CityTax.Mul(people)).
		Add(r.ResortFee).
		Add(r.BreakfastPrice.Mul(people))
	total := money.New(perNight, unit.Currency)
	target := money.New(total.Amount.Mul(rate), converted.Currency)

	return SupplierCost{
		TotalPerNight:  total,
		EffectiveRate:  rate,
		PerNightTarget: target,
		PerStay:        target.MulInt(max(r.Nights, 0)),
	}
}

// SupplierCost converts the supplier's nightly price into currency and derives
// the full room cost from it, so markup downstream sees the rate actually applied.
func (a *Aggregator) SupplierCost(ctx context.Context, r SupplierRate, currency money.Currency) SupplierCost {
	conv := a.convert(ctx, r.PricePerNight, currency)
	converted := conv.Amount
	if conv.Source == fx.SourceUnconverted {
		converted = money.Money{Amount: conv.Amount.Amount, Currency: currency}
	}
	cost := SupplierCostFor(r, converted)
	cost.ConversionSource = conv.Source
	cost.ConversionWarning = conv.Warning
	return cost
}
