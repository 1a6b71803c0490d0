package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/travel-pricing/internal/clock"
	"github.com/noah-isme/travel-pricing/internal/money"
)

// Locker serialises warm cycles across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Warmer refreshes rates for a fixed set of base currencies ahead of the
// cache TTL so pricing passes rarely wait on the provider.
type Warmer struct {
	Source   RateSource
	Cache    RateCache
	Bases    []money.Currency
	TTL      time.Duration
	Interval time.Duration
	Timeout  time.Duration
	Locker   Locker
	LockKey  string
	LockTTL  time.Duration
	Clock    clock.Clock
	Logger   zerolog.Logger
}

// WarmResult summarises one cycle.
type WarmResult struct {
	Refreshed []money.Currency
	Skipped   []money.Currency
	Failed    map[money.Currency]error
	Stored    int
}

// RunOnce refreshes every base currency whose rates are older than half the interval.
func (w *Warmer) RunOnce(ctx context.Context) (WarmResult, error) {
	if w.Source == nil || w.Cache == nil {
		return WarmResult{}, errors.New("fx: warmer requires a source and a cache")
	}
	var result WarmResult
	cycle := func(ctx context.Context) error {
		result = w.cycle(ctx)
		return nil
	}
	if w.Locker == nil {
		err := cycle(ctx)
		return result, err
	}
	key := w.LockKey
	if key == "" {
		key = "fx:warm:lock"
	}
	lockTTL := w.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, lockTTL)
	defer cancel()
	err := w.Locker.WithLock(waitCtx, key, lockTTL, cycle)
	return result, err
}

// Run warms immediately and then on every interval until ctx is done.
func (w *Warmer) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultTTL - time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		res, err := w.RunOnce(ctx)
		evt := w.Logger.Info()
		if err != nil {
			evt = w.Logger.Warn().Err(err)
		}
		evt.Int("refreshed", len(res.Refreshed)).Int("skipped", len(res.Skipped)).Int("failed", len(res.Failed)).Int("stored", res.Stored).Msg("fx_warm_cycle")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Warmer) cycle(ctx context.Context) WarmResult {
	clk := clock.Or(w.Clock)
	ttl := w.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	res := WarmResult{Failed: map[money.Currency]error{}}
	for _, base := range w.Bases {
		if w.fresh(ctx, clk, base) {
			res.Skipped = append(res.Skipped, base)
			continue
		}
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		rates, err := w.Source.Rates(fetchCtx, base)
		cancel()
		if err != nil {
			res.Failed[base] = err
			w.Logger.Warn().Err(err).Str("base", string(base)).Msg("fx_warm_fetch_failed")
			continue
		}
		res.Stored += storeRates(ctx, w.Cache, base, rates, clk.Now(), ttl, w.Logger)
		res.Refreshed = append(res.Refreshed, base)
	}
	return res
}

// fresh reports whether another warm cycle stored rates for base recently.
func (w *Warmer) fresh(ctx context.Context, clk clock.Clock, base money.Currency) bool {
	window := w.Interval / 2
	if window <= 0 {
		return false
	}
	for _, other := range w.Bases {
		if other == base {
			continue
		}
		entry, ok, err := w.Cache.Get(ctx, Pair{From: base, To: other})
		if err != nil || !ok {
			return false
		}
		if clk.Now().Sub(entry.FetchedAt) >= window {
			return false
		}
	}
	return len(w.Bases) > 1
}

// ErrStaleRates reports that the warmed cache no longer holds a live rate.
var ErrStaleRates = errors.New("fx: warmed rates are stale")

// Check reports whether the first warmed pair is still within the TTL. It is
// meant for readiness probes.
func (w *Warmer) Check(ctx context.Context) error {
	if len(w.Bases) < 2 {
		return nil
	}
	ttl := w.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	pair := Pair{From: w.Bases[0], To: w.Bases[1]}
	entry, ok, err := w.Cache.Get(ctx, pair)
	if err != nil {
		return err
	}
	if !ok || clock.Or(w.Clock).Now().Sub(entry.FetchedAt) >= ttl {
		return fmt.Errorf("%w: %s", ErrStaleRates, pair)
	}
	return nil
}
