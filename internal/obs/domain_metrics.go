package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// FXLookupsTotal counts non-identity rate lookups by source.
	FXLookupsTotal *prometheus.CounterVec
	// FXConversionDegradedTotal counts conversions that fell back or stayed unconverted.
	FXConversionDegradedTotal *prometheus.CounterVec
	// FXFetchDuration records provider fetch latency in milliseconds.
	FXFetchDuration prometheus.Histogram
	// QuotePassesTotal counts pricing passes by outcome.
	QuotePassesTotal *prometheus.CounterVec
	// InvalidComponentsTotal counts component selections excluded from a subtotal.
	InvalidComponentsTotal *prometheus.CounterVec
	// ScheduleReconciliationsTotal counts schedules whose final installment absorbed a residual.
	ScheduleReconciliationsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers pricing collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		FXLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fx_lookups_total",
			Help:      "Count of FX rate lookups by source.",
		}, []string{"source"})
		FXConversionDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fx_conversion_degraded_total",
			Help:      "Count of conversions served from fallback or left unconverted.",
		}, []string{"source"})
		FXFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fx_fetch_duration_ms",
			Help:      "Latency of FX provider fetches in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})
		QuotePassesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_passes_total",
			Help:      "Count of pricing passes by outcome.",
		}, []string{"result"})
		InvalidComponentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_invalid_components_total",
			Help:      "Component selections excluded from a subtotal, by kind.",
		}, []string{"kind"})
		ScheduleReconciliationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_reconciliations_total",
			Help:      "Schedules whose final installment absorbed a rounding residual.",
		})

		mustRegisterCollector(reg, FXLookupsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FXLookupsTotal = v
			}
		})
		mustRegisterCollector(reg, FXConversionDegradedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FXConversionDegradedTotal = v
			}
		})
		mustRegisterCollector(reg, FXFetchDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				FXFetchDuration = v
			}
		})
		mustRegisterCollector(reg, QuotePassesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotePassesTotal = v
			}
		})
		mustRegisterCollector(reg, InvalidComponentsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InvalidComponentsTotal = v
			}
		})
		mustRegisterCollector(reg, ScheduleReconciliationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ScheduleReconciliationsTotal = v
			}
		})
	})
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
