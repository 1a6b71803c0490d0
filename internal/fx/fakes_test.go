package fx_test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/money"
)

type fakeSource struct {
	mu    sync.Mutex
	calls map[money.Currency]int
	rates map[money.Currency]map[money.Currency]decimal.Decimal
	err   error
	block bool
}

func newFakeSource(rates map[money.Currency]map[money.Currency]string) *fakeSource {
	src := &fakeSource{
		calls: map[money.Currency]int{},
		rates: map[money.Currency]map[money.Currency]decimal.Decimal{},
	}
	for base, quotes := range rates {
		src.rates[base] = map[money.Currency]decimal.Decimal{}
		for cur, r := range quotes {
			src.rates[base][cur] = decimal.RequireFromString(r)
		}
	}
	return src
}

func (f *fakeSource) Rates(ctx context.Context, base money.Currency) (map[money.Currency]decimal.Decimal, error) {
	f.mu.Lock()
	f.calls[base]++
	err, block := f.err, f.block
	quotes := f.rates[base]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	out := make(map[money.Currency]decimal.Decimal, len(quotes))
	for k, v := range quotes {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSource) Calls(base money.Currency) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[base]
}

func (f *fakeSource) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
