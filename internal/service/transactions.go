package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/infra/observability"
	"github.com/finwell/expense-tracker-api/internal/port"
	"github.com/finwell/expense-tracker-api/internal/recurring"
)

var txTracer = otel.Tracer("service/transactions")

// Transaction lifecycle events published to the broker.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
	EventSeriesCreated      = "series.created"
	EventSeriesUpdated      = "series.updated"
	EventSeriesDeleted      = "series.deleted"
)

// TransactionService manages one-time transactions, recurring series and
// budget summaries.
type TransactionService struct {
	store     port.TransactionStore
	users     port.AuthStore
	publisher port.EventPublisher
	engine    *recurring.Engine
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewTransactionService creates a transaction service.
func NewTransactionService(
	store port.TransactionStore,
	users port.AuthStore,
	publisher port.EventPublisher,
	engine *recurring.Engine,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		store:     store,
		users:     users,
		publisher: publisher,
		engine:    engine,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================
// One-time transactions
// ============================================================

func validateTransactionRequest(req *domain.TransactionRequest) error {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}
	if !domain.ContainsString(domain.TransactionCurrencies, req.Currency) {
		return &domain.ErrValidation{
			Field:   "currency",
			Message: fmt.Sprintf("currency must be one of %s", strings.Join(domain.TransactionCurrencies, ", ")),
		}
	}
	if !domain.ContainsString(domain.Categories, req.Category) {
		return &domain.ErrValidation{Field: "category", Message: "unknown category"}
	}
	if !domain.ContainsString(domain.Statuses, req.Status) {
		return &domain.ErrValidation{
			Field:   "status",
			Message: fmt.Sprintf("status must be %s or %s", domain.StatusIncome, domain.StatusOutgoing),
		}
	}
	if req.Date.IsZero() {
		return &domain.ErrValidation{Field: "date", Message: "date is required"}
	}
	return nil
}

// CreateTransaction books a one-time transaction. A favorite currency on
// the user's account overrides the request currency.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, req *domain.TransactionRequest) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.CreateTransaction")
	defer span.End()

	if err := validateTransactionRequest(req); err != nil {
		return nil, err
	}

	currency := req.Currency
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user != nil && user.FavoriteCurrency != "" {
		currency = user.FavoriteCurrency
	}

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      req.Amount,
		Currency:    currency,
		Category:    req.Category,
		Status:      req.Status,
		Description: req.Description,
		Date:        req.Date,
		Type:        domain.TypeOneTime,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.metrics.IncrTransactionCreated(domain.TypeOneTime)
	s.publish(ctx, EventTransactionCreated, tx.ID, userID)

	s.logger.Info("transaction created",
		zap.String("transaction_id", tx.ID),
		zap.String("user_id", userID),
		zap.String("category", tx.Category),
	)

	return tx, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.GetTransaction")
	defer span.End()

	tx, err := s.store.GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if tx == nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: txID}
	}
	return tx, nil
}

// UpdateTransaction patches a one-time transaction. Recurring rows are
// updated through their series instead.
func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, txID string, req *domain.UpdateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.UpdateTransaction")
	defer span.End()

	tx, err := s.GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, err
	}
	if tx.Type == domain.TypeRecurring {
		return nil, &domain.ErrValidation{
			Field:   "id",
			Message: "recurring transactions are updated through their series",
		}
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}
	if req.Currency != nil {
		tx.Currency = *req.Currency
	}
	if req.Category != nil {
		tx.Category = *req.Category
	}
	if req.Status != nil {
		tx.Status = *req.Status
	}
	if req.Description != nil {
		tx.Description = *req.Description
	}
	if req.Date != nil {
		tx.Date = *req.Date
	}

	check := domain.TransactionRequest{
		Amount:   tx.Amount,
		Currency: tx.Currency,
		Category: tx.Category,
		Status:   tx.Status,
		Date:     tx.Date,
	}
	if err := validateTransactionRequest(&check); err != nil {
		return nil, err
	}

	tx.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, EventTransactionUpdated, tx.ID, userID)
	return tx, nil
}

// DeleteTransaction removes a transaction. Deleting a recurring row
// removes its whole series.
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, txID string) error {
	ctx, span := txTracer.Start(ctx, "TransactionService.DeleteTransaction")
	defer span.End()

	tx, err := s.GetTransaction(ctx, userID, txID)
	if err != nil {
		return err
	}

	if tx.RecurringSeriesID != "" {
		n, err := s.store.DeleteSeries(ctx, userID, tx.RecurringSeriesID)
		if err != nil {
			return fmt.Errorf("delete series: %w", err)
		}
		s.logger.Info("recurring series deleted via member transaction",
			zap.String("series_id", tx.RecurringSeriesID),
			zap.Int("rows", n),
		)
		s.publish(ctx, EventSeriesDeleted, tx.RecurringSeriesID, userID)
		return nil
	}

	if err := s.store.DeleteTransaction(ctx, userID, txID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, EventTransactionDeleted, txID, userID)
	return nil
}

// ============================================================
// Listing and filtering
// ============================================================

// ListTransactions returns the user's transactions in the window implied
// by the filter, narrowed by its optional category, status, currency and
// exact-date fields.
func (s *TransactionService) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.ListTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.Int("year", filter.Year),
		attribute.Int("month", filter.Month),
	)

	from, to, err := filterWindow(filter)
	if err != nil {
		return nil, err
	}

	txs, err := s.store.ListTransactions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := txs[:0]
	for _, tx := range txs {
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.Currency != "" && tx.Currency != filter.Currency {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func filterWindow(filter domain.TransactionFilter) (from, to domain.Date, err error) {
	switch {
	case !filter.Date.IsZero():
		return filter.Date, filter.Date, nil
	case filter.Year != 0 && filter.Month != 0:
		if filter.Month < 1 || filter.Month > 12 {
			return from, to, &domain.ErrValidation{Field: "month", Message: "month must be between 1 and 12"}
		}
		from = domain.NewDate(filter.Year, filter.Month, 1)
		to = domain.NewDate(filter.Year, filter.Month, domain.DaysInMonth(filter.Year, filter.Month))
		return from, to, nil
	case filter.Year != 0:
		return domain.NewDate(filter.Year, 1, 1), domain.NewDate(filter.Year, 12, 31), nil
	default:
		return from, to, &domain.ErrValidation{Field: "year", Message: "year is required"}
	}
}

// ============================================================
// Summaries
// ============================================================

// MonthlySummary aggregates one calendar month.
func (s *TransactionService) MonthlySummary(ctx context.Context, userID string, year, month int) (*domain.Summary, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.MonthlySummary")
	defer span.End()

	if month < 1 || month > 12 {
		return nil, &domain.ErrValidation{Field: "month", Message: "month must be between 1 and 12"}
	}
	from := domain.NewDate(year, month, 1)
	to := domain.NewDate(year, month, domain.DaysInMonth(year, month))
	return s.summarize(ctx, userID, from, to)
}

// AnnualSummary aggregates one calendar year.
func (s *TransactionService) AnnualSummary(ctx context.Context, userID string, year int) (*domain.Summary, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.AnnualSummary")
	defer span.End()

	return s.summarize(ctx, userID, domain.NewDate(year, 1, 1), domain.NewDate(year, 12, 31))
}

// MonthlyTotals returns the income and outgoing sums for one calendar
// month, for the scalar budget endpoints.
func (s *TransactionService) MonthlyTotals(ctx context.Context, userID string, year, month int) (income, outgoings decimal.Decimal, err error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.MonthlyTotals")
	defer span.End()

	if month < 1 || month > 12 {
		return income, outgoings, &domain.ErrValidation{Field: "month", Message: "month must be between 1 and 12"}
	}
	from := domain.NewDate(year, month, 1)
	to := domain.NewDate(year, month, domain.DaysInMonth(year, month))
	return s.totals(ctx, userID, from, to)
}

// AnnualTotals returns the income and outgoing sums for one calendar year.
func (s *TransactionService) AnnualTotals(ctx context.Context, userID string, year int) (income, outgoings decimal.Decimal, err error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.AnnualTotals")
	defer span.End()

	return s.totals(ctx, userID, domain.NewDate(year, 1, 1), domain.NewDate(year, 12, 31))
}

func (s *TransactionService) totals(ctx context.Context, userID string, from, to domain.Date) (income, outgoings decimal.Decimal, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.store.SumByStatus(gctx, userID, domain.StatusIncome, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		outgoings, err = s.store.SumByStatus(gctx, userID, domain.StatusOutgoing, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return income, outgoings, fmt.Errorf("sum transactions: %w", err)
	}
	return income, outgoings, nil
}

func (s *TransactionService) summarize(ctx context.Context, userID string, from, to domain.Date) (*domain.Summary, error) {
	var (
		income, outgoings decimal.Decimal
		txs               []domain.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.store.SumByStatus(gctx, userID, domain.StatusIncome, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		outgoings, err = s.store.SumByStatus(gctx, userID, domain.StatusOutgoing, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summarize transactions: %w", err)
	}

	categories := make(map[string][]domain.CategoryExpenses)
	for _, tx := range txs {
		buckets := categories[tx.Category]
		found := false
		for i := range buckets {
			if buckets[i].Status == tx.Status {
				buckets[i].TransactionCount++
				buckets[i].TotalAmount = buckets[i].TotalAmount.Add(tx.Amount)
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, domain.CategoryExpenses{
				TransactionCount: 1,
				TotalAmount:      tx.Amount,
				Status:           tx.Status,
			})
		}
		categories[tx.Category] = buckets
	}

	return &domain.Summary{
		TotalIncome:    income,
		TotalOutgoings: outgoings,
		TotalBudget:    income.Sub(outgoings),
		Categories:     categories,
	}, nil
}

// publish delivers an event best-effort: publish failures are logged,
// never surfaced to the caller.
func (s *TransactionService) publish(ctx context.Context, event, id, userID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, event, id, userID); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
