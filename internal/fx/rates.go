// Package fx converts money between currencies using live provider rates,
// an advisory TTL cache and a static fallback table.
package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/money"
)

var (
	// ErrConversionDegraded marks a conversion that used fallback or unconverted values.
	ErrConversionDegraded = errors.New("fx: conversion degraded")
	// ErrRateUnavailable is the cause recorded when the provider answered without the requested rate.
	ErrRateUnavailable = errors.New("fx: rate unavailable")
	// ErrNoSource is the cause recorded when no rate source is configured.
	ErrNoSource = errors.New("fx: no rate source configured")
)

// Pair identifies a conversion direction.
type Pair struct {
	From money.Currency
	To   money.Currency
}

func (p Pair) String() string {
	return string(p.From) + "->" + string(p.To)
}

// Entry is a cached market rate with the time it was fetched.
type Entry struct {
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// RateSource returns market rates from base to every currency the provider knows.
type RateSource interface {
	Rates(ctx context.Context, base money.Currency) (map[money.Currency]decimal.Decimal, error)
}

// RateCache stores market rates. Entries are advisory: the converter checks
// freshness itself and treats cache errors as misses.
type RateCache interface {
	Get(ctx context.Context, pair Pair) (Entry, bool, error)
	Put(ctx context.Context, pair Pair, entry Entry, ttl time.Duration) error
}

// Source describes where a conversion rate came from.
type Source string

const (
	SourceIdentity    Source = "identity"
	SourceCache       Source = "cache"
	SourceLive        Source = "live"
	SourceFallback    Source = "fallback"
	SourceUnconverted Source = "unconverted"
)

// Degraded reports whether the source is one of the degraded paths.
func (s Source) Degraded() bool {
	return s == SourceFallback || s == SourceUnconverted
}

// DegradedError carries the cause of a degraded conversion. It matches
// ErrConversionDegraded with errors.Is and unwraps to the cause.
type DegradedError struct {
	Pair   Pair
	Source Source
	Cause  error
}

func (e *DegradedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("fx: conversion degraded %s (%s)", e.Pair, e.Source)
	}
	return fmt.Sprintf("fx: conversion degraded %s (%s): %v", e.Pair, e.Source, e.Cause)
}

// Is matches ErrConversionDegraded.
func (e *DegradedError) Is(target error) bool {
	return target == ErrConversionDegraded
}

// Unwrap returns the underlying cause.
func (e *DegradedError) Unwrap() error {
	return e.Cause
}
