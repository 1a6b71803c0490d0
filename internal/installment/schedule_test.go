package installment_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/travel-pricing/internal/clock"
	"github.com/noah-isme/travel-pricing/internal/installment"
	"github.com/noah-isme/travel-pricing/internal/money"
)

var booked = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scheduler() installment.Scheduler {
	return installment.Scheduler{Clock: clock.NewFixed(booked)}
}

func gbp(s string) money.Money { return money.MustParse(s, money.GBP) }

func amounts(s installment.Schedule) []string {
	out := make([]string, 0, len(s.Installments))
	for _, in := range s.Installments {
		out = append(out, in.Amount.String())
	}
	return out
}

func dues(s installment.Schedule) []time.Time {
	out := make([]time.Time, 0, len(s.Installments))
	for _, in := range s.Installments {
		out = append(out, in.DueDate)
	}
	return out
}

func TestScheduleSplitsEvenly(t *testing.T) {
	s, err := scheduler().Schedule(gbp("1698"), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"566.00 GBP", "566.00 GBP", "566.00 GBP"}, amounts(s))
	require.Equal(t, installment.TypeDeposit, s.Installments[0].Type)
	require.Equal(t, installment.TypeSecond, s.Installments[1].Type)
	require.Equal(t, installment.TypeFinal, s.Installments[2].Type)
	require.True(t, s.Residual.IsZero())
	require.False(t, s.Manual)
}

func TestScheduleFinalTakesRemainder(t *testing.T) {
	s, err := scheduler().Schedule(gbp("100"), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"33.33 GBP", "33.33 GBP", "33.34 GBP"}, amounts(s))

	s, err = scheduler().Schedule(gbp("0.02"), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"0.01 GBP", "0.01 GBP", "0.00 GBP"}, amounts(s))
}

func TestScheduleAlwaysSumsToTotal(t *testing.T) {
	sch := scheduler()
	for cents := int64(0); cents <= 250000; cents += 37 {
		total := money.New(decimal.New(cents, -2), money.EUR)
		s, err := sch.Schedule(total, nil)
		require.NoError(t, err, "total %s", total)
		require.True(t, s.Sum().Equal(total), "total %s summed to %s", total, s.Sum())
		for _, in := range s.Installments {
			require.False(t, in.Amount.IsNegative(), "total %s", total)
		}
	}
}

func TestScheduleRejectsNegativeTotal(t *testing.T) {
	_, err := scheduler().Schedule(gbp("-1"), nil)
	require.ErrorIs(t, err, installment.ErrNegativeTotal)
}

func TestScheduleDefaultDueDates(t *testing.T) {
	s, err := scheduler().Schedule(gbp("1698"), nil)
	require.NoError(t, err)
	require.Equal(t, []time.Time{
		date(2026, time.March, 15),
		date(2026, time.May, 1),
		date(2026, time.July, 1),
	}, dues(s))
}

func TestScheduleDueDatesCrossYear(t *testing.T) {
	sch := installment.Scheduler{Clock: clock.NewFixed(time.Date(2026, time.November, 20, 9, 0, 0, 0, time.UTC))}
	s, err := sch.Schedule(gbp("300"), nil)
	require.NoError(t, err)
	require.Equal(t, date(2027, time.January, 1), s.Installments[1].DueDate)
	require.Equal(t, date(2027, time.March, 1), s.Installments[2].DueDate)
}

func TestScheduleEventDatePullsFinalForward(t *testing.T) {
	cases := []struct {
		name   string
		event  time.Time
		second time.Time
		final  time.Time
	}{
		{"distant event keeps defaults", date(2026, time.December, 1), date(2026, time.May, 1), date(2026, time.July, 1)},
		{"prefers first of cutoff month", date(2026, time.June, 20), date(2026, time.May, 1), date(2026, time.June, 1)},
		{"first of month equal to second", date(2026, time.May, 10), date(2026, time.May, 1), date(2026, time.May, 1)},
		{"cutoff itself when first of month is too early", date(2026, time.April, 10), date(2026, time.April, 3), date(2026, time.April, 3)},
		{"event inside buffer is due today", date(2026, time.March, 18), date(2026, time.March, 15), date(2026, time.March, 15)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := tc.event
			s, err := scheduler().Schedule(gbp("1698"), &event)
			require.NoError(t, err)
			require.Equal(t, date(2026, time.March, 15), s.Installments[0].DueDate)
			require.Equal(t, tc.second, s.Installments[1].DueDate)
			require.Equal(t, tc.final, s.Installments[2].DueDate)
			if cutoff := event.Add(-installment.DefaultEventBuffer); !cutoff.Before(booked) {
				require.False(t, s.Installments[2].DueDate.After(cutoff))
			}
		})
	}
}

func TestScheduleCustomEventBuffer(t *testing.T) {
	sch := installment.Scheduler{Clock: clock.NewFixed(booked), EventBuffer: 30 * 24 * time.Hour}
	event := date(2026, time.July, 20)
	s, err := sch.Schedule(gbp("1698"), &event)
	require.NoError(t, err)
	// cutoff 20 June; first of June is after the second payment
	require.Equal(t, date(2026, time.June, 1), s.Installments[2].DueDate)
}

func TestOverrideKeepsDatesAndReconciles(t *testing.T) {
	dueDeposit := date(2026, time.March, 20)
	dueSecond := date(2026, time.April, 9)
	dueFinal := date(2026, time.May, 30)

	s, err := scheduler().Override(gbp("1698"), []installment.Installment{
		{Type: installment.TypeFinal, Amount: gbp("500"), DueDate: dueFinal},
		{Type: installment.TypeDeposit, Amount: gbp("500"), DueDate: dueDeposit},
		{Type: installment.TypeSecond, Amount: gbp("600"), DueDate: dueSecond},
	})
	require.NoError(t, err)
	require.True(t, s.Manual)
	require.Equal(t, []string{"500.00 GBP", "600.00 GBP", "598.00 GBP"}, amounts(s))
	require.Equal(t, []time.Time{dueDeposit, dueSecond, dueFinal}, dues(s))
	require.Equal(t, "98.00 GBP", s.Residual.String())
	require.True(t, s.Sum().Equal(gbp("1698")))
}

func TestOverrideRejectsUnusableSchedules(t *testing.T) {
	due := date(2026, time.April, 1)
	full := func() []installment.Installment {
		return []installment.Installment{
			{Type: installment.TypeDeposit, Amount: gbp("500"), DueDate: due},
			{Type: installment.TypeSecond, Amount: gbp("500"), DueDate: due},
			{Type: installment.TypeFinal, Amount: gbp("698"), DueDate: due},
		}
	}

	missing := full()[:2]
	dup := append(full(), installment.Installment{Type: installment.TypeSecond, Amount: gbp("1"), DueDate: due})
	negative := full()
	negative[1].Amount = gbp("-5")
	noDate := full()
	noDate[0].DueDate = time.Time{}
	otherCurrency := full()
	otherCurrency[0].Amount = money.MustParse("500", money.EUR)
	unknown := append(full(), installment.Installment{Type: "balloon", Amount: gbp("0"), DueDate: due})
	exceeding := full()
	exceeding[0].Amount = gbp("1000")
	exceeding[1].Amount = gbp("1000")

	for name, in := range map[string][]installment.Installment{
		"missing final":  missing,
		"duplicate":      dup,
		"negative":       negative,
		"no due date":    noDate,
		"other currency": otherCurrency,
		"unknown type":   unknown,
		"exceeds total":  exceeding,
	} {
		_, err := scheduler().Override(gbp("1698"), in)
		require.ErrorIs(t, err, installment.ErrInvalidOverride, name)
	}
}
