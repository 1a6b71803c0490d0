package pricing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/money"
)

// LineStatus tells the calling layer how a component contributed.
type LineStatus string

const (
	LineIncluded LineStatus = "included"
	LineAbsent   LineStatus = "absent"
	LineInvalid  LineStatus = "invalid"
)

// Line is the priced breakdown of one component, in its native currency.
type Line struct {
	Kind     Kind   `json:"kind"`
	Label    string `json:"label,omitempty"`
	Quantity int    `json:"quantity"`
	// Multiplier is 2 for return airport transfers, 1 otherwise.
	Multiplier  int         `json:"multiplier"`
	Nights      int         `json:"nights,omitempty"`
	BaseNights  int         `json:"base_nights,omitempty"`
	ExtraNights int         `json:"extra_nights,omitempty"`
	Unit        money.Money `json:"unit"`
	Amount      money.Money `json:"amount"`
	Status      LineStatus  `json:"status"`
	Reason      string      `json:"reason,omitempty"`
}

// Pricer computes the price contribution of a single component. It holds no
// mutable state; pricing the same selection twice yields the same Line.
type Pricer struct {
	validate *validator.Validate
}

// NewPricer returns a pricer with validation rules registered.
func NewPricer() *Pricer {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if m, ok := field.Interface().(money.Money); ok {
			return m.Amount.InexactFloat64()
		}
		return nil
	}, money.Money{})
	return &Pricer{validate: v}
}

// Price returns the component's line. Invalid selections come back as a zero
// line with status invalid and an error wrapping ErrInvalidComponentSelection.
func (p *Pricer) Price(c Component) (Line, error) {
	if c == nil {
		return Line{Status: LineInvalid, Reason: "missing component"}, &InvalidSelectionError{Index: -1, Reason: "missing component"}
	}
	if a, ok := c.(Absent); ok {
		return Line{Kind: a.Of, Status: LineAbsent, Amount: money.Zero("")}, nil
	}
	if err := p.check(c); err != nil {
		return invalidLine(c, err.Reason), err
	}

	switch v := c.(type) {
	case Ticket:
		return unitLine(v.Kind(), v.Label, v.UnitPrice, v.Quantity, 1), nil
	case CircuitTransfer:
		return unitLine(v.Kind(), v.Label, v.UnitPrice, v.Quantity, 1), nil
	case LoungePass:
		return unitLine(v.Kind(), v.Label, v.UnitPrice, v.Quantity, 1), nil
	case Flight:
		return unitLine(v.Kind(), v.Label, v.UnitPrice, v.Passengers, 1), nil
	case AirportTransfer:
		mult := 1
		if v.Direction == DirectionBoth {
			mult = 2
		}
		return unitLine(v.Kind(), v.Label, v.UnitPrice, v.Quantity, mult), nil
	case HotelStay:
		return p.hotelLine(v)
	default:
		err := &InvalidSelectionError{Index: -1, Kind: c.Kind(), Reason: fmt.Sprintf("unsupported component %T", c)}
		return invalidLine(c, err.Reason), err
	}
}

func (p *Pricer) hotelLine(h HotelStay) (Line, error) {
	nights := Nights(h.CheckIn, h.CheckOut)
	if nights <= 0 {
		err := &InvalidSelectionError{Index: -1, Kind: KindHotelStay, Reason: "check-out must be after check-in"}
		line := invalidLine(h, err.Reason)
		line.Nights = nights
		return line, err
	}
	if h.BaseCheckIn.IsZero() != h.BaseCheckOut.IsZero() {
		err := &InvalidSelectionError{Index: -1, Kind: KindHotelStay, Reason: "contract dates incomplete"}
		return invalidLine(h, err.Reason), err
	}
	baseNights := nights
	if !h.BaseCheckIn.IsZero() {
		baseNights = max(0, Nights(h.BaseCheckIn, h.BaseCheckOut))
	}
	extra := max(0, nights-baseNights)

	rooms := decimal.NewFromInt(int64(h.Quantity))
	base := h.BasePricePerStay.Amount.Mul(rooms)
	extras := h.ExtraNightPrice.Amount.Mul(decimal.NewFromInt(int64(extra))).Mul(rooms)

	return Line{
		Kind:        KindHotelStay,
		Label:       h.Label,
		Quantity:    h.Quantity,
		Multiplier:  1,
		Nights:      nights,
		BaseNights:  baseNights,
		ExtraNights: extra,
		Unit:        h.BasePricePerStay,
		Amount:      money.New(base.Add(extras), h.Currency()),
		Status:      LineIncluded,
	}, nil
}

// Nights counts whole calendar days between two dates, ignoring time of day.
func Nights(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (p *Pricer) check(c Component) *InvalidSelectionError {
	if err := p.validate.Struct(c); err != nil {
		return &InvalidSelectionError{Index: -1, Kind: c.Kind(), Reason: describe(err)}
	}
	if !c.Currency().Valid() {
		return &InvalidSelectionError{Index: -1, Kind: c.Kind(), Reason: fmt.Sprintf("invalid currency %q", c.Currency())}
	}
	if h, ok := c.(HotelStay); ok && h.ExtraNightPrice.Currency != "" && h.ExtraNightPrice.Currency != h.BasePricePerStay.Currency {
		return &InvalidSelectionError{Index: -1, Kind: c.Kind(), Reason: "extra night price currency differs from stay price"}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func unitLine(kind Kind, label string, unit money.Money, qty, mult int) Line {
	return Line{
		Kind:       kind,
		Label:      label,
		Quantity:   qty,
		Multiplier: mult,
		Unit:       unit,
		Amount:     unit.MulInt(qty * mult).Rounded(),
		Status:     LineIncluded,
	}
}

func invalidLine(c Component, reason string) Line {
	return Line{
		Kind:   c.Kind(),
		Amount: money.Zero(c.Currency()),
		Status: LineInvalid,
		Reason: reason,
	}
}
