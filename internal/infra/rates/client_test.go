package rates_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finwell/expense-tracker-api/internal/infra/rates"
	"github.com/finwell/expense-tracker-api/internal/infra/resilience"
)

func testConfig() resilience.Config {
	return resilience.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
	}
}

func TestFetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("access_key"); got != "test-key" {
			t.Errorf("expected access_key=test-key, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"base":"EUR","rates":{"USD":1.08,"TRY":35.5}}`))
	}))
	defer srv.Close()

	client := rates.NewClient(srv.Client(), srv.URL, "test-key",
		resilience.NewCircuitBreaker("rates-test"), testConfig())

	got, err := client.FetchRates(context.Background(), []string{"USD", "TRY"})
	if err != nil {
		t.Fatalf("FetchRates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(got))
	}
	if !got["USD"].Equal(decimal.NewFromFloat(1.08)) {
		t.Errorf("expected USD rate 1.08, got %s", got["USD"])
	}
}

func TestFetchRatesProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	client := rates.NewClient(srv.Client(), srv.URL, "k",
		resilience.NewCircuitBreaker("rates-test-fail"), testConfig())

	if _, err := client.FetchRates(context.Background(), []string{"USD"}); err == nil {
		t.Fatal("expected error when provider reports failure")
	}
}

func TestFetchRatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := rates.NewClient(srv.Client(), srv.URL, "k",
		resilience.NewCircuitBreaker("rates-test-500"), testConfig())

	if _, err := client.FetchRates(context.Background(), []string{"USD"}); err == nil {
		t.Fatal("expected error on HTTP 502")
	}
}
