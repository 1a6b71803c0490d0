package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/money"
)

// TenantPricingPolicy carries the tenant-wide business rules applied to every
// quote. Markup is never itemised to the client.
type TenantPricingPolicy struct {
	MarkupRate decimal.Decimal `json:"markup_rate"`
	// ExemptTenantID pays no markup. Compared as an opaque identifier.
	ExemptTenantID string          `json:"exempt_tenant_id,omitempty"`
	Currency       money.Currency  `json:"currency"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Rounding       Rounding        `json:"rounding,omitempty"`
}

// Validate rejects policies that cannot produce a price.
func (p TenantPricingPolicy) Validate() error {
	if !p.Currency.Valid() {
		return fmt.Errorf("%w: currency %q", ErrInvalidPolicy, p.Currency)
	}
	if p.MarkupRate.IsNegative() {
		return fmt.Errorf("%w: negative markup rate", ErrInvalidPolicy)
	}
	if p.CommissionRate.IsNegative() || p.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: commission rate must be within [0,1]", ErrInvalidPolicy)
	}
	switch p.Rounding {
	case "", RoundingCanonical, RoundingCents:
	default:
		return fmt.Errorf("%w: unknown rounding %q", ErrInvalidPolicy, p.Rounding)
	}
	return nil
}

// Exempt reports whether tenantID matches the exemption.
func (p TenantPricingPolicy) Exempt(tenantID string) bool {
	exempt := strings.TrimSpace(p.ExemptTenantID)
	return exempt != "" && exempt == strings.TrimSpace(tenantID)
}

// MarkupFor returns the markup rate that applies to tenantID.
func (p TenantPricingPolicy) MarkupFor(tenantID string) decimal.Decimal {
	if p.Exempt(tenantID) {
		return decimal.Zero
	}
	return p.MarkupRate
}

func (p TenantPricingPolicy) rounding() Rounding {
	if p.Rounding == "" {
		return RoundingCanonical
	}
	return p.Rounding
}
