package pricing

import (
	"time"

	"github.com/noah-isme/travel-pricing/internal/money"
)

// Kind names a component variant.
type Kind string

const (
	KindTicket          Kind = "ticket"
	KindHotelStay       Kind = "hotel_stay"
	KindCircuitTransfer Kind = "circuit_transfer"
	KindAirportTransfer Kind = "airport_transfer"
	KindFlight          Kind = "flight"
	KindLoungePass      Kind = "lounge_pass"
)

// Component is one selected line of a travel package.
type Component interface {
	Kind() Kind
	Currency() money.Currency
}

// Direction applies to airport transfers.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionReturn   Direction = "return"
	DirectionBoth     Direction = "both"
)

// Ticket is an event ticket line.
type Ticket struct {
	Label     string      `json:"label,omitempty"`
	Quantity  int         `json:"quantity" validate:"min=1"`
	UnitPrice money.Money `json:"unit_price" validate:"gte=0"`
}

func (Ticket) Kind() Kind {
	return KindTicket
}

func (t Ticket) Currency() money.Currency {
	return t.UnitPrice.Currency
}

// HotelStay is a room booking measured against the contracted stay.
// Quantity is the number of rooms.
type HotelStay struct {
	Label            string      `json:"label,omitempty"`
	Quantity         int         `json:"quantity" validate:"min=1"`
	CheckIn          time.Time   `json:"check_in" validate:"required"`
	CheckOut         time.Time   `json:"check_out" validate:"required"`
	BaseCheckIn      time.Time   `json:"base_check_in"`
	BaseCheckOut     time.Time   `json:"base_check_out"`
	BasePricePerStay money.Money `json:"base_price_per_stay" validate:"gte=0"`
	ExtraNightPrice  money.Money `json:"extra_night_price" validate:"gte=0"`
}

func (HotelStay) Kind() Kind {
	return KindHotelStay
}

func (h HotelStay) Currency() money.Currency {
	return h.BasePricePerStay.Currency
}

// CircuitTransfer is a transfer between hotel and venue.
type CircuitTransfer struct {
	Label     string      `json:"label,omitempty"`
	Quantity  int         `json:"quantity" validate:"min=1"`
	UnitPrice money.Money `json:"unit_price" validate:"gte=0"`
}

func (CircuitTransfer) Kind() Kind {
	return KindCircuitTransfer
}

func (c CircuitTransfer) Currency() money.Currency {
	return c.UnitPrice.Currency
}

// AirportTransfer is priced per leg; DirectionBoth counts two legs.
type AirportTransfer struct {
	Label     string      `json:"label,omitempty"`
	Quantity  int         `json:"quantity" validate:"min=1"`
	UnitPrice money.Money `json:"unit_price" validate:"gte=0"`
	Direction Direction   `json:"direction" validate:"oneof=outbound return both"`
}

func (AirportTransfer) Kind() Kind {
	return KindAirportTransfer
}

func (a AirportTransfer) Currency() money.Currency {
	return a.UnitPrice.Currency
}

// Flight is priced per passenger.
type Flight struct {
	Label      string      `json:"label,omitempty"`
	Passengers int         `json:"passengers" validate:"min=1"`
	UnitPrice  money.Money `json:"unit_price" validate:"gte=0"`
}

func (Flight) Kind() Kind {
	return KindFlight
}

func (f Flight) Currency() money.Currency {
	return f.UnitPrice.Currency
}

// LoungePass is an optional airport lounge add-on.
type LoungePass struct {
	Label     string      `json:"label,omitempty"`
	Quantity  int         `json:"quantity" validate:"min=1"`
	UnitPrice money.Money `json:"unit_price" validate:"gte=0"`
}

func (LoungePass) Kind() Kind {
	return KindLoungePass
}

func (l LoungePass) Currency() money.Currency {
	return l.UnitPrice.Currency
}

// Absent marks an optional component the client did not select. It is
// reported in the breakdown but never priced, which keeps it distinct from
// an included component priced at zero.
type Absent struct {
	Of Kind `json:"of"`
}

func (a Absent) Kind() Kind {
	return a.Of
}

func (Absent) Currency() money.Currency {
	return ""
}
