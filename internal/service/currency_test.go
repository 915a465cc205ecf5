package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/infra/cache"
	"github.com/finwell/expense-tracker-api/internal/infra/observability"
	"github.com/finwell/expense-tracker-api/internal/service"
)

type fakeRateFetcher struct {
	rates map[string]decimal.Decimal
	err   error
	calls int
}

func (f *fakeRateFetcher) FetchRates(_ context.Context, _ []string) (map[string]decimal.Decimal, error) {
	f.calls++
	return f.rates, f.err
}

func newCurrencyService(fetcher *fakeRateFetcher) *service.CurrencyService {
	return service.NewCurrencyService(
		fetcher,
		cache.New[map[string]decimal.Decimal](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestConvertCrossRate(t *testing.T) {
	fetcher := &fakeRateFetcher{rates: map[string]decimal.Decimal{
		"USD": decimal.NewFromFloat(1.10),
		"TRY": decimal.NewFromFloat(36.30),
	}}
	svc := newCurrencyService(fetcher)

	result, err := svc.Convert(context.Background(), "USD", "TRY", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	// 100 USD -> EUR -> TRY: 100 / 1.10 * 36.30 = 3300
	if !result.ConvertedAmount.Equal(decimal.NewFromInt(3300)) {
		t.Errorf("expected 3300, got %s", result.ConvertedAmount)
	}
	if !result.Rate.Equal(decimal.NewFromInt(33)) {
		t.Errorf("expected rate 33, got %s", result.Rate)
	}
}

func TestConvertFromEUR(t *testing.T) {
	fetcher := &fakeRateFetcher{rates: map[string]decimal.Decimal{
		"USD": decimal.NewFromFloat(1.08),
	}}
	svc := newCurrencyService(fetcher)

	result, err := svc.Convert(context.Background(), "EUR", "USD", decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !result.ConvertedAmount.Equal(decimal.NewFromInt(54)) {
		t.Errorf("expected 54, got %s", result.ConvertedAmount)
	}
}

func TestConvertCachesRates(t *testing.T) {
	fetcher := &fakeRateFetcher{rates: map[string]decimal.Decimal{
		"USD": decimal.NewFromFloat(1.08),
		"GBP": decimal.NewFromFloat(0.85),
	}}
	svc := newCurrencyService(fetcher)

	for i := 0; i < 3; i++ {
		if _, err := svc.Convert(context.Background(), "USD", "GBP", decimal.NewFromInt(10)); err != nil {
			t.Fatalf("Convert: %v", err)
		}
	}
	if fetcher.calls != 1 {
		t.Errorf("expected a single provider call, got %d", fetcher.calls)
	}
}

func TestConvertValidation(t *testing.T) {
	svc := newCurrencyService(&fakeRateFetcher{})

	if _, err := svc.Convert(context.Background(), "XBT", "USD", decimal.NewFromInt(1)); err == nil {
		t.Error("expected error for unsupported source currency")
	}
	if _, err := svc.Convert(context.Background(), "USD", "EUR", decimal.Zero); err == nil {
		t.Error("expected error for non-positive amount")
	}
}

func TestConvertMissingRate(t *testing.T) {
	fetcher := &fakeRateFetcher{rates: map[string]decimal.Decimal{}}
	svc := newCurrencyService(fetcher)

	if _, err := svc.Convert(context.Background(), "USD", "TRY", decimal.NewFromInt(1)); err == nil {
		t.Fatal("expected error when provider omits a rate")
	}
}
