// Package resilience guards outbound calls to the exchange-rates
// provider: retry with exponential backoff, a circuit breaker, and a
// bulkhead capping concurrent requests.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"github.com/finwell/expense-tracker-api/internal/domain"
)

// Config tunes retry and concurrency behavior for outbound calls.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// RetryWithBackoff runs fn up to cfg.MaxRetries+1 times. The wait doubles
// after each failure, with random jitter so concurrent callers spread out.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries {
			return lastErr
		}

		wait := backoff
		if backoff > 0 {
			wait += time.Duration(rand.Int63n(int64(backoff)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
}

// NewCircuitBreaker builds the breaker for an external service. It trips
// once a rolling window of at least 5 requests reaches a 60% failure
// ratio, and recovers through 3 half-open probe requests.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.6
		},
	})
}

// Execute runs fn through the breaker and translates breaker rejections
// into the service error the handlers map to 503. Errors from fn itself
// pass through unchanged.
func Execute[T any](cb *gobreaker.CircuitBreaker, service string, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (any, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &domain.ErrCircuitOpen{Service: service}
		}
		return zero, err
	}
	return out.(T), nil
}

// Bulkhead caps the number of concurrent outbound requests.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead creates a bulkhead allowing size concurrent holders.
// Sizes below 1 are rounded up so Acquire can never block forever on an
// unbuffered channel.
func NewBulkhead(size int) *Bulkhead {
	if size < 1 {
		size = 1
	}
	return &Bulkhead{slots: make(chan struct{}, size)}
}

// Acquire takes a slot, failing with a timeout error when the context
// expires before one frees up.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return &domain.ErrTimeout{Operation: "waiting for an outbound request slot"}
	}
}

// Release frees a slot taken by Acquire.
func (b *Bulkhead) Release() {
	<-b.slots
}
