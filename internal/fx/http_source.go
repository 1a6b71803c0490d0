package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/travel-pricing/internal/money"
	"github.com/noah-isme/travel-pricing/internal/resilience"
)

// HTTPSource fetches the latest rates from a time-series FX provider that
// answers GET {BaseURL}/latest?from=EUR with {"base":"EUR","rates":{"GBP":0.85}}.
type HTTPSource struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Rates implements RateSource.
func (s HTTPSource) Rates(ctx context.Context, base money.Currency) (map[money.Currency]decimal.Decimal, error) {
	if strings.TrimSpace(s.BaseURL) == "" {
		return nil, errors.New("fx: provider base url not configured")
	}
	endpoint, err := url.Parse(strings.TrimRight(s.BaseURL, "/") + "/latest")
	if err != nil {
		return nil, fmt.Errorf("fx: parse provider url: %w", err)
	}
	q := endpoint.Query()
	q.Set("from", string(base))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTP.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fx: fetch %s rates: %w", base, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fx: fetch %s rates: %w", base, &resilience.StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fx: decode %s rates: %w", base, err)
	}
	if got := money.ParseCurrency(payload.Base); got != "" && got != base {
		return nil, fmt.Errorf("fx: provider answered for %s, asked %s", got, base)
	}
	out := make(map[money.Currency]decimal.Decimal, len(payload.Rates))
	for code, rate := range payload.Rates {
		if !rate.IsPositive() {
			continue
		}
		out[money.ParseCurrency(code)] = rate
	}
	return out, nil
}
