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
// TransactionStore implementation
// ============================================================

const txColumns = `id, user_id, amount, currency, category, status, description,
	year, month, day, type, day_of_month, start_month, start_year, end_month, end_year,
	recurring_series_id, updated_at`

// dateKey collapses (year, month, day) into one orderable integer so
// range filters and ordering stay index-friendly.
const dateKey = "(year * 10000 + month * 100 + day)"

func dateKeyOf(d domain.Date) int {
	return d.Year*10000 + d.Month*100 + d.Day
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t      domain.Transaction
		amount string
	)
	err := row.Scan(&t.ID, &t.UserID, &amount, &t.Currency, &t.Category, &t.Status,
		&t.Description, &t.Date.Year, &t.Date.Month, &t.Date.Day, &t.Type,
		&t.DayOfMonth, &t.StartMonth, &t.StartYear, &t.EndMonth, &t.EndYear,
		&t.RecurringSeriesID, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	return &t, nil
}

func (s *Store) collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateTransaction")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+txColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount.String(), tx.Currency, tx.Category, tx.Status,
		tx.Description, tx.Date.Year, tx.Date.Month, tx.Date.Day, tx.Type,
		tx.DayOfMonth, tx.StartMonth, tx.StartYear, tx.EndMonth, tx.EndYear,
		tx.RecurringSeriesID, tx.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetTransaction")
	defer span.End()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, txID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateTransaction")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET amount = ?, currency = ?, category = ?, status = ?, description = ?,
		     year = ?, month = ?, day = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		tx.Amount.String(), tx.Currency, tx.Category, tx.Status, tx.Description,
		tx.Date.Year, tx.Date.Month, tx.Date.Day, tx.UpdatedAt.UTC(),
		tx.UserID, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, txID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteTransaction")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, txID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: txID}
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, from, to domain.Date) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListTransactions")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE user_id = ? AND `+dateKey+` BETWEEN ? AND ?
		 ORDER BY year, month, day, id`,
		userID, dateKeyOf(from), dateKeyOf(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.collectTransactions(rows)
}

func (s *Store) ListRecurringSeries(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListRecurringSeries")
	defer span.End()

	// One row per series: the earliest occurrence carries the schedule
	// fields shown on the recurring overview.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions t
		 WHERE user_id = ? AND recurring_series_id <> ''
		   AND `+dateKey+` = (
		       SELECT MIN(year * 10000 + month * 100 + day)
		       FROM transactions t2
		       WHERE t2.user_id = t.user_id
		         AND t2.recurring_series_id = t.recurring_series_id)
		 ORDER BY year, month, day, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring series: %w", err)
	}
	return s.collectTransactions(rows)
}

func (s *Store) ListSeriesTransactions(ctx context.Context, userID, seriesID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListSeriesTransactions")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE user_id = ? AND recurring_series_id = ?
		 ORDER BY year, month, day`,
		userID, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list series transactions: %w", err)
	}
	return s.collectTransactions(rows)
}

func (s *Store) UpdateSeriesDetails(ctx context.Context, userID, seriesID string, tx *domain.Transaction) (int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateSeriesDetails")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET amount = ?, currency = ?, category = ?, status = ?, description = ?, updated_at = ?
		 WHERE user_id = ? AND recurring_series_id = ?`,
		tx.Amount.String(), tx.Currency, tx.Category, tx.Status, tx.Description,
		tx.UpdatedAt.UTC(), userID, seriesID)
	if err != nil {
		return 0, fmt.Errorf("update series: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) DeleteSeries(ctx context.Context, userID, seriesID string) (int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteSeries")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND recurring_series_id = ?`,
		userID, seriesID)
	if err != nil {
		return 0, fmt.Errorf("delete series: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// SumByStatus totals amounts in Go rather than SQL: SQLite would coerce
// the stored decimal strings to float.
func (s *Store) SumByStatus(ctx context.Context, userID, status string, from, to domain.Date) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "SQLite.SumByStatus")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT amount FROM transactions
		 WHERE user_id = ? AND status = ? AND `+dateKey+` BETWEEN ? AND ?`,
		userID, status, dateKeyOf(from), dateKeyOf(to))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}
