package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/port"
)

var savingsTracer = otel.Tracer("service/savings")

// SavingsService manages per-currency balances and saving goals.
type SavingsService struct {
	store  port.SavingsStore
	logger *zap.Logger
}

// NewSavingsService creates a savings service.
func NewSavingsService(store port.SavingsStore, logger *zap.Logger) *SavingsService {
	return &SavingsService{store: store, logger: logger}
}

// ============================================================
// Balances
// ============================================================

func validateSavingCurrency(currency string) error {
	if !domain.ContainsString(domain.SavingsCurrencies, currency) {
		return &domain.ErrValidation{
			Field:   "currency",
			Message: fmt.Sprintf("currency must be one of %s", strings.Join(domain.SavingsCurrencies, ", ")),
		}
	}
	return nil
}

func (s *SavingsService) CreateSaving(ctx context.Context, userID string, req *domain.SavingRequest) (*domain.Saving, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.CreateSaving")
	defer span.End()

	if err := validateSavingCurrency(req.Currency); err != nil {
		return nil, err
	}
	if req.Amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must not be negative"}
	}

	sv := &domain.Saving{
		ID:       uuid.NewString(),
		UserID:   userID,
		Currency: req.Currency,
		Amount:   req.Amount,
	}
	if err := s.store.CreateSaving(ctx, sv); err != nil {
		return nil, fmt.Errorf("create saving: %w", err)
	}

	s.logger.Info("saving created",
		zap.String("saving_id", sv.ID),
		zap.String("user_id", userID),
		zap.String("currency", sv.Currency),
	)
	return sv, nil
}

func (s *SavingsService) GetSaving(ctx context.Context, userID, id string) (*domain.Saving, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.GetSaving")
	defer span.End()

	sv, err := s.store.GetSaving(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get saving: %w", err)
	}
	if sv == nil {
		return nil, &domain.ErrNotFound{Resource: "saving", ID: id}
	}
	return sv, nil
}

// UpdateSaving replaces the balance amount of an entry.
func (s *SavingsService) UpdateSaving(ctx context.Context, userID string, req *domain.UpdateSavingRequest) (*domain.Saving, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.UpdateSaving")
	defer span.End()

	if req.Amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must not be negative"}
	}
	if err := s.store.UpdateSavingAmount(ctx, userID, req.ID, req.Amount); err != nil {
		return nil, err
	}
	return s.GetSaving(ctx, userID, req.ID)
}

func (s *SavingsService) DeleteSaving(ctx context.Context, userID, id string) error {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.DeleteSaving")
	defer span.End()

	return s.store.DeleteSaving(ctx, userID, id)
}

func (s *SavingsService) ListSavings(ctx context.Context, userID, currency string) ([]domain.Saving, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.ListSavings")
	defer span.End()

	if currency != "" {
		if err := validateSavingCurrency(currency); err != nil {
			return nil, err
		}
		return s.store.ListSavingsByCurrency(ctx, userID, currency)
	}
	return s.store.ListSavings(ctx, userID)
}

// ============================================================
// Goals
// ============================================================

func (s *SavingsService) CreateSavingGoal(ctx context.Context, userID string, req *domain.SavingGoalRequest) (*domain.SavingGoal, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.CreateSavingGoal")
	defer span.End()

	if strings.TrimSpace(req.GoalName) == "" {
		return nil, &domain.ErrValidation{Field: "goalName", Message: "goal name is required"}
	}
	if err := validateSavingCurrency(req.Currency); err != nil {
		return nil, err
	}
	if req.GoalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.ErrValidation{Field: "goalAmount", Message: "goal amount must be positive"}
	}

	initial := decimal.Zero
	if req.InitialAmount != nil {
		if req.InitialAmount.IsNegative() {
			return nil, &domain.ErrValidation{Field: "initialAmount", Message: "initial amount must not be negative"}
		}
		initial = *req.InitialAmount
	}

	today := domain.Today()
	if req.TargetDate.IsZero() || !req.TargetDate.After(today) {
		return nil, &domain.ErrValidation{Field: "targetDate", Message: "target date must be in the future"}
	}

	g := &domain.SavingGoal{
		ID:            uuid.NewString(),
		UserID:        userID,
		GoalName:      strings.TrimSpace(req.GoalName),
		GoalAmount:    req.GoalAmount,
		Currency:      req.Currency,
		InitialAmount: initial,
		Description:   req.Description,
		StartDate:     today,
		TargetDate:    req.TargetDate,
		GoalStatus:    domain.GoalActive,
	}
	if err := s.store.CreateSavingGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("create saving goal: %w", err)
	}

	s.logger.Info("saving goal created",
		zap.String("goal_id", g.ID),
		zap.String("user_id", userID),
		zap.String("goal_name", g.GoalName),
	)
	return g, nil
}

func (s *SavingsService) GetSavingGoal(ctx context.Context, userID, id string) (*domain.SavingGoal, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.GetSavingGoal")
	defer span.End()

	g, err := s.store.GetSavingGoal(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get saving goal: %w", err)
	}
	if g == nil {
		return nil, &domain.ErrNotFound{Resource: "saving goal", ID: id}
	}
	return g, nil
}

// UpdateSavingGoal replaces a goal's details. The lifecycle status and
// start date are managed separately and survive the update.
func (s *SavingsService) UpdateSavingGoal(ctx context.Context, userID, id string, req *domain.SavingGoalRequest) (*domain.SavingGoal, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.UpdateSavingGoal")
	defer span.End()

	g, err := s.GetSavingGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.GoalName) == "" {
		return nil, &domain.ErrValidation{Field: "goalName", Message: "goal name is required"}
	}
	if err := validateSavingCurrency(req.Currency); err != nil {
		return nil, err
	}
	if req.GoalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.ErrValidation{Field: "goalAmount", Message: "goal amount must be positive"}
	}
	if req.TargetDate.IsZero() || !req.TargetDate.After(g.StartDate) {
		return nil, &domain.ErrValidation{Field: "targetDate", Message: "target date must be after the start date"}
	}
	if req.InitialAmount != nil {
		if req.InitialAmount.IsNegative() {
			return nil, &domain.ErrValidation{Field: "initialAmount", Message: "initial amount must not be negative"}
		}
		g.InitialAmount = *req.InitialAmount
	}

	g.GoalName = strings.TrimSpace(req.GoalName)
	g.GoalAmount = req.GoalAmount
	g.Currency = req.Currency
	g.Description = req.Description
	g.TargetDate = req.TargetDate

	if err := s.store.UpdateSavingGoal(ctx, g); err != nil {
		return nil, err
	}

	s.logger.Info("saving goal updated",
		zap.String("goal_id", id),
		zap.String("user_id", userID),
	)
	return g, nil
}

// UpdateSavingGoalStatus moves a goal through its lifecycle.
func (s *SavingsService) UpdateSavingGoalStatus(ctx context.Context, userID, id, status string) (*domain.SavingGoal, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.UpdateSavingGoalStatus")
	defer span.End()

	valid := []string{domain.GoalActive, domain.GoalCompleted, domain.GoalCancelled}
	if !domain.ContainsString(valid, status) {
		return nil, &domain.ErrValidation{
			Field:   "goalStatus",
			Message: fmt.Sprintf("status must be one of %s", strings.Join(valid, ", ")),
		}
	}

	g, err := s.GetSavingGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	g.GoalStatus = status
	if err := s.store.UpdateSavingGoal(ctx, g); err != nil {
		return nil, err
	}

	s.logger.Info("saving goal status updated",
		zap.String("goal_id", id),
		zap.String("status", status),
	)
	return g, nil
}

func (s *SavingsService) DeleteSavingGoal(ctx context.Context, userID, id string) error {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.DeleteSavingGoal")
	defer span.End()

	return s.store.DeleteSavingGoal(ctx, userID, id)
}

func (s *SavingsService) ListSavingGoals(ctx context.Context, userID string) ([]domain.SavingGoal, error) {
	ctx, span := savingsTracer.Start(ctx, "SavingsService.ListSavingGoals")
	defer span.End()

	return s.store.ListSavingGoals(ctx, userID)
}
