package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/travel-pricing/internal/clock"
)

var breakerNopLogger = zerolog.Nop()

// ErrOpenCircuit is returned when the breaker refuses a provider call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker position exported on the breaker_state gauge.
type State int

// Breaker states.
const (
	Closed State = iota
	Open
	HalfOpen
)

var stateNames = [...]string{Closed: "closed", Open: "open", HalfOpen: "half_open"}

func (s State) String() string {
	if s < Closed || s > HalfOpen {
		return "unknown"
	}
	return stateNames[s]
}

// BreakerSettings holds the thresholds for one upstream. Outcomes are judged
// in consecutive windows of MinRequests calls; a window whose failure share
// reaches FailureRatio opens the breaker for OpenFor.
type BreakerSettings struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

func (s BreakerSettings) normalized() BreakerSettings {
	if s.MinRequests <= 0 {
		s.MinRequests = 1
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.5
	}
	s.FailureRatio = min(s.FailureRatio, 1)
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	return s
}

// BreakerOption customises a Breaker at construction.
type BreakerOption func(*Breaker)

// WithLogger sets the logger that receives breaker_transition events.
func WithLogger(logger zerolog.Logger) BreakerOption {
	return func(b *Breaker) { b.logger = logger }
}

// WithClock swaps the time source.
func WithClock(c clock.Clock) BreakerOption {
	return func(b *Breaker) { b.clock = clock.Or(c) }
}

// Breaker guards a single upstream such as the FX rate provider. While
// half-open it lets exactly one trial call through and settles on its
// outcome.
type Breaker struct {
	target   string
	settings BreakerSettings
	logger   zerolog.Logger
	clock    clock.Clock

	mu       sync.Mutex
	state    State
	calls    int
	failed   int
	openedAt time.Time
	trial    bool
}

// NewBreaker builds a closed breaker for target. Zero settings fall back to
// one call per window, a 50% failure ratio and a 30s cool-off.
func NewBreaker(target string, settings BreakerSettings, opts ...BreakerOption) *Breaker {
	if target == "" {
		target = "default"
	}
	b := &Breaker{
		target:   target,
		settings: settings.normalized(),
		logger:   breakerNopLogger,
		clock:    clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.publish()
	return b
}

// Target returns the upstream label used for metrics and logs.
func (b *Breaker) Target() string {
	return b.target
}

// Settings returns the effective thresholds after defaults.
func (b *Breaker) Settings() BreakerSettings {
	return b.settings
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may go out now. Once the cool-off has passed
// an open breaker turns half-open and admits a single trial.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if b.clock.Now().Sub(b.openedAt) < b.settings.OpenFor {
			return false
		}
		b.moveLocked(ctx, HalfOpen)
	}
	if b.state == HalfOpen {
		if b.trial {
			return false
		}
		b.trial = true
	}
	return true
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.moveLocked(ctx, Closed)
		} else {
			b.moveLocked(ctx, Open)
		}
		return
	}

	b.calls++
	if !success {
		b.failed++
	}
	if b.calls < b.settings.MinRequests {
		return
	}
	if float64(b.failed)/float64(b.calls) >= b.settings.FailureRatio {
		b.moveLocked(ctx, Open)
		return
	}
	b.calls, b.failed = 0, 0
}

func (b *Breaker) moveLocked(ctx context.Context, next State) {
	prev := b.state
	b.state = next
	b.calls, b.failed = 0, 0
	b.trial = false
	if next == Open {
		b.openedAt = b.clock.Now()
	}
	b.publish()

	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(b.target, prev.String(), next.String()).Inc()
	}
	evt := b.logger.Info().
		Str("target", b.target).
		Str("from_state", prev.String()).
		Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

// publish mirrors the state onto the gauge: 0 closed, 1 open, 2 half-open.
func (b *Breaker) publish() {
	if BreakerState == nil {
		return
	}
	BreakerState.WithLabelValues(b.target).Set(float64(b.state))
}
