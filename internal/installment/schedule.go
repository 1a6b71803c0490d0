// Package installment splits a quote total into the deposit, second and
// final payments a client owes, with due dates derived from the booking day
// and the event start.
package installment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/clock"
	"github.com/noah-isme/travel-pricing/internal/money"
	"github.com/noah-isme/travel-pricing/internal/obs"
)

var (
	// ErrReconciliationFailure means the installments could not be made to sum
	// to the total. It indicates a logic fault and is never expected.
	ErrReconciliationFailure = errors.New("installment: schedule does not reconcile to total")
	// ErrInvalidOverride rejects manual schedules that cannot be honoured.
	ErrInvalidOverride = errors.New("installment: invalid manual schedule")
	// ErrNegativeTotal rejects totals below zero.
	ErrNegativeTotal = errors.New("installment: negative total")
)

// DefaultEventBuffer is how long before the event the final payment must land.
const DefaultEventBuffer = 7 * 24 * time.Hour

// Type names an installment.
type Type string

const (
	TypeDeposit Type = "deposit"
	TypeSecond  Type = "second"
	TypeFinal   Type = "final"
)

var order = []Type{TypeDeposit, TypeSecond, TypeFinal}

// Installment is one payment in a schedule.
type Installment struct {
	Type    Type        `json:"type"`
	Amount  money.Money `json:"amount"`
	DueDate time.Time   `json:"due_date"`
}

// Schedule is the ordered deposit, second and final installments.
type Schedule struct {
	Total        money.Money   `json:"total"`
	Installments []Installment `json:"installments"`
	// Manual is set when the caller supplied the due dates.
	Manual bool `json:"manual"`
	// Residual is what the final installment absorbed during reconciliation.
	Residual money.Money `json:"residual"`
}

// Sum adds the installment amounts.
func (s Schedule) Sum() money.Money {
	sum := money.Zero(s.Total.Currency)
	for _, in := range s.Installments {
		sum = sum.Add(in.Amount)
	}
	return sum
}

// Scheduler derives payment schedules. The zero value uses the system clock
// and a seven day event buffer.
type Scheduler struct {
	Clock       clock.Clock
	EventBuffer time.Duration
}

// Schedule splits total into thirds. Deposit and second are total/3 rounded
// to the cent; final takes the remainder so the sum is exact. When eventStart
// is set the final payment is pulled in to land before the event buffer.
func (s Scheduler) Schedule(total money.Money, eventStart *time.Time) (Schedule, error) {
	if total.IsNegative() {
		return Schedule{}, fmt.Errorf("%w: %s", ErrNegativeTotal, total)
	}
	total = total.Rounded()
	third := money.New(total.Amount.Div(decimal.NewFromInt(3)), total.Currency)
	final := total.Sub(third).Sub(third)

	deposit, second, finalDue := s.dueDates(eventStart)
	sched := Schedule{
		Total: total,
		Installments: []Installment{
			{Type: TypeDeposit, Amount: third, DueDate: deposit},
			{Type: TypeSecond, Amount: third, DueDate: second},
			{Type: TypeFinal, Amount: final, DueDate: finalDue},
		},
		Residual: money.Zero(total.Currency),
	}
	if err := reconcile(&sched); err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

// Override validates a caller-supplied schedule. Due dates are kept as given;
// amounts are rounded and the final installment absorbs whatever makes the
// sum differ from total.
func (s Scheduler) Override(total money.Money, installments []Installment) (Schedule, error) {
	if total.IsNegative() {
		return Schedule{}, fmt.Errorf("%w: %s", ErrNegativeTotal, total)
	}
	total = total.Rounded()
	byType := make(map[Type]Installment, len(installments))
	for _, in := range installments {
		if _, dup := byType[in.Type]; dup {
			return Schedule{}, fmt.Errorf("%w: duplicate %s installment", ErrInvalidOverride, in.Type)
		}
		if in.Amount.Currency != total.Currency {
			return Schedule{}, fmt.Errorf("%w: %s installment in %s, total in %s", ErrInvalidOverride, in.Type, in.Amount.Currency, total.Currency)
		}
		if in.Amount.IsNegative() {
			return Schedule{}, fmt.Errorf("%w: negative %s installment", ErrInvalidOverride, in.Type)
		}
		if in.DueDate.IsZero() {
			return Schedule{}, fmt.Errorf("%w: %s installment has no due date", ErrInvalidOverride, in.Type)
		}
		in.Amount = in.Amount.Rounded()
		byType[in.Type] = in
	}
	sched := Schedule{Total: total, Manual: true, Residual: money.Zero(total.Currency)}
	for _, t := range order {
		in, ok := byType[t]
		if !ok {
			return Schedule{}, fmt.Errorf("%w: missing %s installment", ErrInvalidOverride, t)
		}
		sched.Installments = append(sched.Installments, in)
	}
	if len(byType) != len(order) {
		return Schedule{}, fmt.Errorf("%w: unknown installment type", ErrInvalidOverride)
	}
	if err := reconcile(&sched); err != nil {
		return Schedule{}, err
	}
	if sched.Installments[2].Amount.IsNegative() {
		return Schedule{}, fmt.Errorf("%w: installments exceed total %s", ErrInvalidOverride, total)
	}
	return sched, nil
}

// reconcile moves any difference between the installments and the total into
// the final installment, then checks the sum once more.
func reconcile(s *Schedule) error {
	residual := s.Total.Sub(s.Sum())
	if !residual.IsZero() {
		last := &s.Installments[len(s.Installments)-1]
		last.Amount = last.Amount.Add(residual).Rounded()
		s.Residual = residual
		if obs.ScheduleReconciliationsTotal != nil {
			obs.ScheduleReconciliationsTotal.Inc()
		}
	}
	if !s.Sum().Equal(s.Total) {
		return fmt.Errorf("%w: installments %s, total %s", ErrReconciliationFailure, s.Sum(), s.Total)
	}
	return nil
}

func (s Scheduler) dueDates(eventStart *time.Time) (deposit, second, final time.Time) {
	today := dateOf(clock.Or(s.Clock).Now())
	second = firstOfMonth(today, 2)
	final = firstOfMonth(second, 2)
	if eventStart == nil || eventStart.IsZero() {
		return today, second, final
	}

	buffer := s.EventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	cutoff := dateOf(eventStart.In(today.Location()).Add(-buffer))
	if !final.After(cutoff) {
		return today, second, final
	}
	switch {
	case cutoff.Before(today):
		final = today
	case !firstOfMonth(cutoff, 0).Before(second) && !firstOfMonth(cutoff, 0).Before(today):
		final = firstOfMonth(cutoff, 0)
	default:
		final = cutoff
	}
	if second.After(final) {
		second = final
	}
	return today, second, final
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// firstOfMonth returns the 1st of the month that is months after t's month.
func firstOfMonth(t time.Time, months int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
}
