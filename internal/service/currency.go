package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/infra/observability"
	"github.com/finwell/expense-tracker-api/internal/port"
)

var currencyTracer = otel.Tracer("service/currency")

const ratesCacheKey = "latest"

// CurrencyService converts amounts between the supported currencies.
// The rate provider quotes everything against EUR, so a conversion is a
// cross-rate through the EUR quotes.
type CurrencyService struct {
	fetcher port.RateFetcher
	cache   port.Cache[map[string]decimal.Decimal]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCurrencyService creates a currency service.
func NewCurrencyService(
	fetcher port.RateFetcher,
	cache port.Cache[map[string]decimal.Decimal],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CurrencyService {
	return &CurrencyService{
		fetcher: fetcher,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Convert converts amount from one currency to another using the latest
// provider rates.
func (s *CurrencyService) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*domain.ConversionResult, error) {
	ctx, span := currencyTracer.Start(ctx, "CurrencyService.Convert")
	defer span.End()
	span.SetAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)

	for field, currency := range map[string]string{"from": from, "to": to} {
		if !domain.ContainsString(domain.TransactionCurrencies, currency) {
			return nil, &domain.ErrValidation{
				Field:   field,
				Message: fmt.Sprintf("currency must be one of %s", strings.Join(domain.TransactionCurrencies, ", ")),
			}
		}
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}

	rates, err := s.latestRates(ctx)
	if err != nil {
		return nil, err
	}

	fromRate, err := s.rateFor(rates, from)
	if err != nil {
		return nil, err
	}
	toRate, err := s.rateFor(rates, to)
	if err != nil {
		return nil, err
	}

	// Both quotes are EUR-based: amount / rate(from) is the EUR value,
	// multiplied by rate(to) gives the target amount.
	rate := toRate.DivRound(fromRate, 8)
	converted := amount.Mul(rate).Round(2)

	s.metrics.IncrConversion()

	return &domain.ConversionResult{
		From:            from,
		To:              to,
		Amount:          amount,
		ConvertedAmount: converted,
		Rate:            rate,
	}, nil
}

func (s *CurrencyService) latestRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	if rates, ok := s.cache.Get(ratesCacheKey); ok {
		s.metrics.IncrCacheHit("rates")
		return rates, nil
	}
	s.metrics.IncrCacheMiss("rates")

	rates, err := s.fetcher.FetchRates(ctx, domain.TransactionCurrencies)
	if err != nil {
		s.metrics.IncrExternalError("rates")
		return nil, err
	}
	s.cache.Set(ratesCacheKey, rates)

	s.logger.Debug("exchange rates refreshed", zap.Int("symbols", len(rates)))
	return rates, nil
}

func (s *CurrencyService) rateFor(rates map[string]decimal.Decimal, currency string) (decimal.Decimal, error) {
	if currency == "EUR" {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := rates[currency]
	if !ok || rate.IsZero() {
		return decimal.Zero, &domain.ErrExternalService{
			Service: "rates",
			Err:     fmt.Errorf("no rate for %s", currency),
		}
	}
	return rate, nil
}
