package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/noah-isme/travel-pricing/internal/installment"
	"github.com/noah-isme/travel-pricing/internal/money"
	"github.com/noah-isme/travel-pricing/internal/pricing"
)

// ErrMalformedRequest wraps every decoding failure.
var ErrMalformedRequest = errors.New("quote: malformed request")

// Request is one pricing pass as the calling layer describes it.
type Request struct {
	TenantID        string
	DisplayCurrency money.Currency
	// EventStart constrains the final installment due date when set.
	EventStart *time.Time
	Components []pricing.Component
	// Schedule, when non-empty, is a manual installment override.
	Schedule []installment.Installment
}

type requestJSON struct {
	TenantID        string                    `json:"tenant_id"`
	DisplayCurrency string                    `json:"display_currency"`
	EventStart      *time.Time                `json:"event_start"`
	Components      []json.RawMessage         `json:"components"`
	Schedule        []installment.Installment `json:"schedule"`
}

// envelope carries the discriminator of a component object. An absent
// optional component is written as {"type":"lounge_pass","absent":true}.
type envelope struct {
	Type   pricing.Kind `json:"type"`
	Absent bool         `json:"absent"`
}

// DecodeRequest reads a JSON request. Components are tagged by "type".
func DecodeRequest(r io.Reader) (Request, error) {
	dec := json.NewDecoder(r)
	var raw requestJSON
	if err := dec.Decode(&raw); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	req := Request{
		TenantID:   strings.TrimSpace(raw.TenantID),
		EventStart: raw.EventStart,
		Schedule:   raw.Schedule,
	}
	if raw.DisplayCurrency != "" {
		req.DisplayCurrency = money.ParseCurrency(raw.DisplayCurrency)
		if !req.DisplayCurrency.Valid() {
			return Request{}, fmt.Errorf("%w: display currency %q", ErrMalformedRequest, raw.DisplayCurrency)
		}
	}
	for i, msg := range raw.Components {
		c, err := decodeComponent(msg)
		if err != nil {
			return Request{}, fmt.Errorf("%w: component %d: %w", ErrMalformedRequest, i, err)
		}
		req.Components = append(req.Components, c)
	}
	return req, nil
}

func decodeComponent(msg json.RawMessage) (pricing.Component, error) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, err
	}
	if env.Absent {
		if _, err := newComponent(env.Type); err != nil {
			return nil, err
		}
		return pricing.Absent{Of: env.Type}, nil
	}
	target, err := newComponent(env.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(msg, target); err != nil {
		return nil, err
	}
	return deref(target), nil
}

func newComponent(kind pricing.Kind) (any, error) {
	switch kind {
	case pricing.KindTicket:
		return &pricing.Ticket{}, nil
	case pricing.KindHotelStay:
		return &pricing.HotelStay{}, nil
	case pricing.KindCircuitTransfer:
		return &pricing.CircuitTransfer{}, nil
	case pricing.KindAirportTransfer:
		return &pricing.AirportTransfer{}, nil
	case pricing.KindFlight:
		return &pricing.Flight{}, nil
	case pricing.KindLoungePass:
		return &pricing.LoungePass{}, nil
	default:
		return nil, fmt.Errorf("unknown component type %q", kind)
	}
}

func deref(v any) pricing.Component {
	switch c := v.(type) {
	case *pricing.Ticket:
		return *c
	case *pricing.HotelStay:
		return *c
	case *pricing.CircuitTransfer:
		return *c
	case *pricing.AirportTransfer:
		return *c
	case *pricing.Flight:
		return *c
	case *pricing.LoungePass:
		return *c
	}
	return nil
}
