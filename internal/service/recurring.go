package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/recurring"
)

// ============================================================
// Recurring series: materialized monthly occurrences
// ============================================================

func definitionError(res recurring.ValidationResult) error {
	return &domain.ErrValidation{
		Field:   "definition",
		Message: strings.Join(res.Reasons(), "; "),
	}
}

// CreateRecurring validates the definition, expands it into monthly
// occurrences and books one transaction per occurrence, all sharing a
// fresh series id.
func (s *TransactionService) CreateRecurring(ctx context.Context, userID string, def recurring.Definition) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.CreateRecurring")
	defer span.End()

	if res := s.engine.Validate(def); !res.OK() {
		return nil, definitionError(res)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user != nil && user.FavoriteCurrency != "" {
		def.Currency = user.FavoriteCurrency
	}

	occurrences, err := s.engine.Enumerate(def)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.NewString()
	span.SetAttributes(
		attribute.String("series_id", seriesID),
		attribute.Int("occurrences", len(occurrences)),
	)

	txs, err := s.materializeSeries(ctx, userID, seriesID, def, occurrences)
	if err != nil {
		return nil, err
	}

	s.logger.Info("recurring series created",
		zap.String("series_id", seriesID),
		zap.String("user_id", userID),
		zap.Int("occurrences", len(txs)),
	)
	s.publish(ctx, EventSeriesCreated, seriesID, userID)

	return txs, nil
}

func (s *TransactionService) materializeSeries(ctx context.Context, userID, seriesID string, def recurring.Definition, occurrences []recurring.Occurrence) ([]domain.Transaction, error) {
	now := time.Now().UTC()
	txs := make([]domain.Transaction, 0, len(occurrences))
	for _, occ := range occurrences {
		tx := domain.Transaction{
			ID:                uuid.NewString(),
			UserID:            userID,
			Amount:            occ.Amount,
			Currency:          occ.Currency,
			Category:          occ.Category,
			Status:            occ.Status,
			Description:       occ.Description,
			Date:              occ.Date,
			Type:              domain.TypeRecurring,
			DayOfMonth:        def.DayOfMonth,
			StartMonth:        def.StartMonth,
			StartYear:         def.StartYear,
			EndMonth:          def.EndMonth,
			EndYear:           def.EndYear,
			RecurringSeriesID: seriesID,
			UpdatedAt:         now,
		}
		if err := s.store.CreateTransaction(ctx, &tx); err != nil {
			return nil, fmt.Errorf("materialize occurrence %s: %w", occ.Date, err)
		}
		s.metrics.IncrTransactionCreated(domain.TypeRecurring)
		txs = append(txs, tx)
	}
	return txs, nil
}

// ListRecurringSeries returns one representative transaction per series:
// the earliest occurrence, which carries the schedule fields.
func (s *TransactionService) ListRecurringSeries(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.ListRecurringSeries")
	defer span.End()

	series, err := s.store.ListRecurringSeries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring series: %w", err)
	}
	return series, nil
}

// GetSeries returns every materialized occurrence of a series.
func (s *TransactionService) GetSeries(ctx context.Context, userID, seriesID string) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.GetSeries")
	defer span.End()

	txs, err := s.store.ListSeriesTransactions(ctx, userID, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list series transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, &domain.ErrNotFound{Resource: "recurring series", ID: seriesID}
	}
	return txs, nil
}

// UpdateSeries applies a new definition to an existing series. If the
// schedule itself changed the old occurrences are dropped and the series
// is re-materialized under the same id; otherwise only the descriptive
// fields are rewritten on every row.
func (s *TransactionService) UpdateSeries(ctx context.Context, userID, seriesID string, def recurring.Definition) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.UpdateSeries")
	defer span.End()
	span.SetAttributes(attribute.String("series_id", seriesID))

	if res := s.engine.Validate(def); !res.OK() {
		return nil, definitionError(res)
	}

	existing, err := s.GetSeries(ctx, userID, seriesID)
	if err != nil {
		return nil, err
	}
	head := existing[0]

	scheduleChanged := head.DayOfMonth != def.DayOfMonth ||
		head.StartMonth != def.StartMonth || head.StartYear != def.StartYear ||
		head.EndMonth != def.EndMonth || head.EndYear != def.EndYear

	if scheduleChanged {
		occurrences, err := s.engine.Enumerate(def)
		if err != nil {
			return nil, err
		}
		if _, err := s.store.DeleteSeries(ctx, userID, seriesID); err != nil {
			return nil, fmt.Errorf("delete series: %w", err)
		}
		txs, err := s.materializeSeries(ctx, userID, seriesID, def, occurrences)
		if err != nil {
			return nil, err
		}
		s.logger.Info("recurring series re-materialized",
			zap.String("series_id", seriesID),
			zap.Int("occurrences", len(txs)),
		)
		s.publish(ctx, EventSeriesUpdated, seriesID, userID)
		return txs, nil
	}

	details := &domain.Transaction{
		Amount:      def.Amount,
		Currency:    def.Currency,
		Category:    def.Category,
		Status:      def.Status,
		Description: def.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	if _, err := s.store.UpdateSeriesDetails(ctx, userID, seriesID, details); err != nil {
		return nil, fmt.Errorf("update series details: %w", err)
	}

	s.publish(ctx, EventSeriesUpdated, seriesID, userID)
	return s.GetSeries(ctx, userID, seriesID)
}

// DeleteRecurringSeries removes every occurrence of a series.
func (s *TransactionService) DeleteRecurringSeries(ctx context.Context, userID, seriesID string) error {
	ctx, span := txTracer.Start(ctx, "TransactionService.DeleteRecurringSeries")
	defer span.End()

	n, err := s.store.DeleteSeries(ctx, userID, seriesID)
	if err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "recurring series", ID: seriesID}
	}

	s.logger.Info("recurring series deleted",
		zap.String("series_id", seriesID),
		zap.Int("rows", n),
	)
	s.publish(ctx, EventSeriesDeleted, seriesID, userID)
	return nil
}
