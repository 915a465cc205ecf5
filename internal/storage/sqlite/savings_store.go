package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finwell/expense-tracker-api/internal/domain"
)

// ============================================================
// SavingsStore implementation: balances and goals
// ============================================================

func scanSaving(row rowScanner) (*domain.Saving, error) {
	var (
		s      domain.Saving
		amount string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Currency, &amount); err != nil {
		return nil, err
	}
	var err error
	s.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	return &s, nil
}

func (s *Store) CreateSaving(ctx context.Context, sv *domain.Saving) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateSaving")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO savings (id, user_id, currency, amount) VALUES (?, ?, ?, ?)`,
		sv.ID, sv.UserID, sv.Currency, sv.Amount.String())
	if err != nil {
		return fmt.Errorf("insert saving: %w", err)
	}
	return nil
}

func (s *Store) GetSaving(ctx context.Context, userID, id string) (*domain.Saving, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetSaving")
	defer span.End()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, currency, amount FROM savings WHERE user_id = ? AND id = ?`,
		userID, id)
	sv, err := scanSaving(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan saving: %w", err)
	}
	return sv, nil
}

func (s *Store) UpdateSavingAmount(ctx context.Context, userID, id string, amount decimal.Decimal) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateSavingAmount")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE savings SET amount = ? WHERE user_id = ? AND id = ?`,
		amount.String(), userID, id)
	if err != nil {
		return fmt.Errorf("update saving: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "saving", ID: id}
	}
	return nil
}

func (s *Store) DeleteSaving(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteSaving")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM savings WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete saving: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "saving", ID: id}
	}
	return nil
}

func (s *Store) listSavings(ctx context.Context, query string, args ...any) ([]domain.Saving, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	defer rows.Close()

	var out []domain.Saving
	for rows.Next() {
		sv, err := scanSaving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		out = append(out, *sv)
	}
	return out, rows.Err()
}

func (s *Store) ListSavings(ctx context.Context, userID string) ([]domain.Saving, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListSavings")
	defer span.End()

	return s.listSavings(ctx,
		`SELECT id, user_id, currency, amount FROM savings WHERE user_id = ? ORDER BY currency, id`,
		userID)
}

func (s *Store) ListSavingsByCurrency(ctx context.Context, userID, currency string) ([]domain.Saving, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListSavingsByCurrency")
	defer span.End()

	return s.listSavings(ctx,
		`SELECT id, user_id, currency, amount FROM savings WHERE user_id = ? AND currency = ? ORDER BY id`,
		userID, currency)
}

// --- Saving goals ---

const goalColumns = `id, user_id, goal_name, goal_amount, currency, initial_amount, description,
	start_year, start_month, start_day, target_year, target_month, target_day, goal_status`

func scanSavingGoal(row rowScanner) (*domain.SavingGoal, error) {
	var (
		g             domain.SavingGoal
		goalAmount    string
		initialAmount string
	)
	err := row.Scan(&g.ID, &g.UserID, &g.GoalName, &goalAmount, &g.Currency,
		&initialAmount, &g.Description,
		&g.StartDate.Year, &g.StartDate.Month, &g.StartDate.Day,
		&g.TargetDate.Year, &g.TargetDate.Month, &g.TargetDate.Day,
		&g.GoalStatus)
	if err != nil {
		return nil, err
	}
	if g.GoalAmount, err = decimal.NewFromString(goalAmount); err != nil {
		return nil, fmt.Errorf("parse stored goal amount %q: %w", goalAmount, err)
	}
	if g.InitialAmount, err = decimal.NewFromString(initialAmount); err != nil {
		return nil, fmt.Errorf("parse stored initial amount %q: %w", initialAmount, err)
	}
	return &g, nil
}

func (s *Store) CreateSavingGoal(ctx context.Context, g *domain.SavingGoal) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateSavingGoal")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saving_goals (`+goalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.GoalName, g.GoalAmount.String(), g.Currency,
		g.InitialAmount.String(), g.Description,
		g.StartDate.Year, g.StartDate.Month, g.StartDate.Day,
		g.TargetDate.Year, g.TargetDate.Month, g.TargetDate.Day,
		g.GoalStatus)
	if err != nil {
		return fmt.Errorf("insert saving goal: %w", err)
	}
	return nil
}

func (s *Store) GetSavingGoal(ctx context.Context, userID, id string) (*domain.SavingGoal, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetSavingGoal")
	defer span.End()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM saving_goals WHERE user_id = ? AND id = ?`, userID, id)
	g, err := scanSavingGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan saving goal: %w", err)
	}
	return g, nil
}

func (s *Store) UpdateSavingGoal(ctx context.Context, g *domain.SavingGoal) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateSavingGoal")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE saving_goals
		 SET goal_name = ?, goal_amount = ?, currency = ?, initial_amount = ?, description = ?,
		     start_year = ?, start_month = ?, start_day = ?,
		     target_year = ?, target_month = ?, target_day = ?, goal_status = ?
		 WHERE user_id = ? AND id = ?`,
		g.GoalName, g.GoalAmount.String(), g.Currency, g.InitialAmount.String(), g.Description,
		g.StartDate.Year, g.StartDate.Month, g.StartDate.Day,
		g.TargetDate.Year, g.TargetDate.Month, g.TargetDate.Day, g.GoalStatus,
		g.UserID, g.ID)
	if err != nil {
		return fmt.Errorf("update saving goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "saving goal", ID: g.ID}
	}
	return nil
}

func (s *Store) DeleteSavingGoal(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteSavingGoal")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM saving_goals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete saving goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "saving goal", ID: id}
	}
	return nil
}

func (s *Store) ListSavingGoals(ctx context.Context, userID string) ([]domain.SavingGoal, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListSavingGoals")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM saving_goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saving goals: %w", err)
	}
	defer rows.Close()

	var out []domain.SavingGoal
	for rows.Next() {
		g, err := scanSavingGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saving goal: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}
