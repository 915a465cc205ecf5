// Package rates fetches currency exchange rates from an
// exchangeratesapi-compatible HTTP provider. Quotes are EUR-based, so
// cross-currency conversion goes through EUR.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/infra/resilience"
)

var tracer = otel.Tracer("rates")

// Client fetches latest exchange rates over HTTP. Requests go through a
// bulkhead capping concurrency, a circuit breaker, and retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewClient creates a rates client. cfg.MaxConcurrency bounds the number
// of in-flight provider requests.
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
	}
}

type latestResponse struct {
	Success bool               `json:"success"`
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
}

// FetchRates fetches the latest EUR-based rates for the given symbols.
func (c *Client) FetchRates(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "RatesClient.FetchRates")
	defer span.End()
	span.SetAttributes(attribute.String("symbols", strings.Join(symbols, ",")))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	parsed, err := resilience.Execute(c.cb, "rates", func() (*latestResponse, error) {
		var out latestResponse
		retryErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := fmt.Sprintf("%s/latest?access_key=%s&symbols=%s",
				c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(strings.Join(symbols, ",")))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("rates API returned status %d", resp.StatusCode)
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("rates API reported failure")
			}
			return nil
		})
		if retryErr != nil {
			return nil, retryErr
		}
		return &out, nil
	})
	if err != nil {
		var open *domain.ErrCircuitOpen
		if errors.As(err, &open) {
			return nil, err
		}
		return nil, &domain.ErrExternalService{Service: "rates", Err: err}
	}

	out := make(map[string]decimal.Decimal, len(parsed.Rates))
	for symbol, rate := range parsed.Rates {
		out[symbol] = decimal.NewFromFloat(rate)
	}
	return out, nil
}
