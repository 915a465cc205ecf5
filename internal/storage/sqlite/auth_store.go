package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finwell/expense-tracker-api/internal/domain"
)

// ============================================================
// AuthStore implementation: users and refresh tokens
// ============================================================

const userColumns = "id, username, email, password_hash, favorite_currency, membership_plan, role, created_at"

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FavoriteCurrency, &u.MembershipPlan, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateUser")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.FavoriteCurrency, user.MembershipPlan, user.Role, user.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID returns (nil, nil) when no user matches, mirroring the
// lookup helpers below so callers handle absence uniformly.
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetUserByID")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetUserByUsername")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetUserByEmail")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) SetFavoriteCurrency(ctx context.Context, userID, currency string) error {
	ctx, span := tracer.Start(ctx, "SQLite.SetFavoriteCurrency")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET favorite_currency = ? WHERE id = ?`, currency, userID)
	if err != nil {
		return fmt.Errorf("update favorite currency: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return nil
}

// --- Refresh tokens ---

func (s *Store) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "SQLite.StoreRefreshToken")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expires_at, revoked) VALUES (?, ?, ?, 0)`,
		tokenHash, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetRefreshToken")
	defer span.End()

	var t domain.RefreshToken
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, revoked FROM refresh_tokens WHERE token_hash = ?`,
		tokenHash).Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "SQLite.RevokeRefreshToken")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.RevokeAllRefreshTokens")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
