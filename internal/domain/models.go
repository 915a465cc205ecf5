// Package domain defines the core business entities for the expense tracker.
// These models are independent of storage and transport and represent the
// canonical data structures used throughout the API.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Enumerations
// ============================================================

// Transaction direction.
const (
	StatusIncome   = "INCOME"
	StatusOutgoing = "OUTGOING"
)

// Transaction kind.
const (
	TypeOneTime   = "ONE_TIME"
	TypeRecurring = "RECURRING"
)

// Saving goal lifecycle.
const (
	GoalActive    = "ACTIVE"
	GoalCompleted = "COMPLETED"
	GoalCancelled = "CANCELLED"
)

// User defaults assigned at registration.
const (
	RoleCustomer = "CUSTOMER"
	PlanBasic    = "BASIC"
)

// Categories accepted for transactions.
var Categories = []string{
	"SHOPPING", "RENT", "INVESTMENT", "EDUCATION", "DEBT_PAYMENT", "SALARY",
	"TRAVEL", "OTHER", "BET", "TELECOMMUNICATION", "TRANSPORTATION", "TAX",
}

// TransactionCurrencies are accepted on transactions; SavingsCurrencies
// additionally cover commodity balances on the savings screens.
var (
	TransactionCurrencies = []string{"USD", "EUR", "TRY", "GBP"}
	SavingsCurrencies     = []string{"USD", "EUR", "TRY", "GBP", "GOLD", "SILVER"}
)

// Statuses lists the accepted transaction directions.
var Statuses = []string{StatusIncome, StatusOutgoing}

// ============================================================
// Users
// ============================================================

// User is a registered account holder.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FavoriteCurrency string    `json:"favoriteCurrency,omitempty"`
	MembershipPlan   string    `json:"membershipPlan"`
	Role             string    `json:"role"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RegisterRequest carries the fields collected at sign-up.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse confirms account creation.
type RegisterResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

// LoginRequest carries sign-in credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the token pair issued on login or refresh.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
}

// RefreshRequest carries a refresh token for rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
}

// ============================================================
// Transactions
// ============================================================

// Transaction is a single dated money movement. Recurring series
// materialize one Transaction row per covered month, all sharing a
// RecurringSeriesID.
type Transaction struct {
	ID                string          `json:"id"`
	UserID            string          `json:"-"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Category          string          `json:"category"`
	Status            string          `json:"status"`
	Description       string          `json:"description,omitempty"`
	Date              Date            `json:"date"`
	Type              string          `json:"type"`
	DayOfMonth        int             `json:"dayOfMonth,omitempty"`
	StartMonth        int             `json:"startMonth,omitempty"`
	StartYear         int             `json:"startYear,omitempty"`
	EndMonth          int             `json:"endMonth,omitempty"`
	EndYear           int             `json:"endYear,omitempty"`
	RecurringSeriesID string          `json:"recurringSeriesId,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// TransactionRequest creates a one-time transaction.
type TransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	Date        Date            `json:"date"`
}

// UpdateTransactionRequest patches a one-time transaction; nil fields are
// left unchanged.
type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *string          `json:"currency"`
	Category    *string          `json:"category"`
	Status      *string          `json:"status"`
	Description *string          `json:"description"`
	Date        *Date            `json:"date"`
}

// TransactionFilter narrows transaction listings. Zero values mean
// "no constraint".
type TransactionFilter struct {
	Year     int
	Month    int
	Category string
	Status   string
	Currency string
	Date     Date
}

// ============================================================
// Summaries
// ============================================================

// CategoryExpenses aggregates one (category, status) bucket.
type CategoryExpenses struct {
	TransactionCount int             `json:"transactionCount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Status           string          `json:"status"`
}

// Summary is the monthly or annual budget roll-up.
type Summary struct {
	TotalIncome    decimal.Decimal               `json:"totalIncome"`
	TotalOutgoings decimal.Decimal               `json:"totalOutgoings"`
	TotalBudget    decimal.Decimal               `json:"totalBudget"`
	Categories     map[string][]CategoryExpenses `json:"categories"`
}

// ============================================================
// Savings
// ============================================================

// Saving is a per-currency savings balance entry.
type Saving struct {
	ID       string          `json:"id"`
	UserID   string          `json:"-"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// SavingRequest creates a savings entry.
type SavingRequest struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// UpdateSavingRequest replaces a savings entry's amount.
type UpdateSavingRequest struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// SavingGoal is a target amount to save toward by a date.
type SavingGoal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"-"`
	GoalName      string          `json:"goalName"`
	GoalAmount    decimal.Decimal `json:"goalAmount"`
	Currency      string          `json:"currency"`
	InitialAmount decimal.Decimal `json:"initialAmount"`
	Description   string          `json:"description,omitempty"`
	StartDate     Date            `json:"startDate"`
	TargetDate    Date            `json:"targetDate"`
	GoalStatus    string          `json:"goalStatus"`
}

// SavingGoalRequest creates or replaces a saving goal.
type SavingGoalRequest struct {
	GoalName      string           `json:"goalName"`
	GoalAmount    decimal.Decimal  `json:"goalAmount"`
	Currency      string           `json:"currency"`
	InitialAmount *decimal.Decimal `json:"initialAmount"`
	Description   string           `json:"description"`
	TargetDate    Date             `json:"targetDate"`
}

// ============================================================
// Currency conversion
// ============================================================

// ConversionResult is the outcome of a currency conversion.
type ConversionResult struct {
	From            string          `json:"from"`
	To              string          `json:"to"`
	Amount          decimal.Decimal `json:"amount"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	Rate            decimal.Decimal `json:"rate"`
}

// ContainsString reports whether list contains v. Small fixed allow-lists
// make a linear scan the simplest correct check.
func ContainsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
