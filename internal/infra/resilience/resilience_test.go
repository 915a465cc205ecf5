package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/infra/resilience"
)

func TestRetryWithBackoff(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	t.Run("first attempt succeeds", func(t *testing.T) {
		calls := 0
		err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		calls := 0
		err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		wantErr := errors.New("still down")
		calls := 0
		err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
			calls++
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected last error, got %v", err)
		}
		if calls != cfg.MaxRetries+1 {
			t.Errorf("expected %d calls, got %d", cfg.MaxRetries+1, calls)
		}
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := resilience.RetryWithBackoff(ctx, cfg, func() error {
			return errors.New("never retried")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context error, got %v", err)
		}
	})
}

func TestExecutePassesResultThrough(t *testing.T) {
	cb := resilience.NewCircuitBreaker("rates-pass")

	got, err := resilience.Execute(cb, "rates", func() (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestExecuteMapsOpenBreaker(t *testing.T) {
	cb := resilience.NewCircuitBreaker("rates-trip")

	down := errors.New("provider down")
	for i := 0; i < 6; i++ {
		if _, err := resilience.Execute(cb, "rates", func() (int, error) {
			return 0, down
		}); err == nil {
			t.Fatal("expected failure while tripping the breaker")
		}
	}

	_, err := resilience.Execute(cb, "rates", func() (int, error) {
		return 1, nil
	})
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected circuit-open error, got %v", err)
	}
}

func TestBulkheadLimitsConcurrency(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	var timeout *domain.ErrTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected timeout on full bulkhead, got %v", err)
	}

	bh.Release()
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestBulkheadMinimumSize(t *testing.T) {
	bh := resilience.NewBulkhead(0)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected a usable slot for size 0, got %v", err)
	}
	bh.Release()
}
