// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finwell/expense-tracker-api/internal/domain"
)

// AuthStore persists users and refresh tokens.
type AuthStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetFavoriteCurrency(ctx context.Context, userID, currency string) error

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// TransactionStore persists one-time and materialized recurring transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, txID string) error

	// ListTransactions returns the user's transactions dated within the
	// inclusive [from, to] range, ascending by date.
	ListTransactions(ctx context.Context, userID string, from, to domain.Date) ([]domain.Transaction, error)

	// ListRecurringSeries returns the earliest row of each recurring
	// series owned by the user.
	ListRecurringSeries(ctx context.Context, userID string) ([]domain.Transaction, error)
	ListSeriesTransactions(ctx context.Context, userID, seriesID string) ([]domain.Transaction, error)
	UpdateSeriesDetails(ctx context.Context, userID, seriesID string, tx *domain.Transaction) (int, error)
	DeleteSeries(ctx context.Context, userID, seriesID string) (int, error)

	// SumByStatus totals transaction amounts with the given status inside
	// the inclusive [from, to] range.
	SumByStatus(ctx context.Context, userID, status string, from, to domain.Date) (decimal.Decimal, error)
}

// SavingsStore persists savings balances and saving goals.
type SavingsStore interface {
	CreateSaving(ctx context.Context, s *domain.Saving) error
	GetSaving(ctx context.Context, userID, id string) (*domain.Saving, error)
	UpdateSavingAmount(ctx context.Context, userID, id string, amount decimal.Decimal) error
	DeleteSaving(ctx context.Context, userID, id string) error
	ListSavings(ctx context.Context, userID string) ([]domain.Saving, error)
	ListSavingsByCurrency(ctx context.Context, userID, currency string) ([]domain.Saving, error)

	CreateSavingGoal(ctx context.Context, g *domain.SavingGoal) error
	GetSavingGoal(ctx context.Context, userID, id string) (*domain.SavingGoal, error)
	UpdateSavingGoal(ctx context.Context, g *domain.SavingGoal) error
	DeleteSavingGoal(ctx context.Context, userID, id string) error
	ListSavingGoals(ctx context.Context, userID string) ([]domain.SavingGoal, error)
}

// RateFetcher retrieves exchange rates from an external provider.
// Rates are quoted against a single base currency (EUR for the default
// provider).
type RateFetcher interface {
	FetchRates(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// EventPublisher fans out transaction lifecycle events to interested
// consumers. Implementations must be safe to call concurrently.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event string, txID, userID string) error
	Close() error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
