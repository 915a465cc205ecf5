package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedTestUser(t *testing.T, store *sqlite.Store, id string) {
	t.Helper()
	err := store.CreateUser(context.Background(), &domain.User{
		ID:             id,
		Username:       "user-" + id,
		Email:          id + "@example.com",
		PasswordHash:   "hash",
		MembershipPlan: domain.PlanBasic,
		Role:           domain.RoleCustomer,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func tx(id, userID, seriesID string, amount int64, status string, date domain.Date) *domain.Transaction {
	txType := domain.TypeOneTime
	if seriesID != "" {
		txType = domain.TypeRecurring
	}
	return &domain.Transaction{
		ID:                id,
		UserID:            userID,
		Amount:            decimal.NewFromInt(amount),
		Currency:          "EUR",
		Category:          "OTHER",
		Status:            status,
		Date:              date,
		Type:              txType,
		RecurringSeriesID: seriesID,
		UpdatedAt:         time.Now().UTC(),
	}
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTestUser(t, store, "u1")

	user, err := store.GetUserByUsername(ctx, "user-u1")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Fatalf("expected user u1, got %+v", user)
	}

	missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown email, got %+v", missing)
	}

	if err := store.SetFavoriteCurrency(ctx, "u1", "TRY"); err != nil {
		t.Fatalf("SetFavoriteCurrency: %v", err)
	}
	user, err = store.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if user.FavoriteCurrency != "TRY" {
		t.Errorf("expected TRY, got %s", user.FavoriteCurrency)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTestUser(t, store, "u1")

	expires := time.Now().Add(time.Hour).UTC()
	if err := store.StoreRefreshToken(ctx, "u1", "hash-1", expires); err != nil {
		t.Fatalf("StoreRefreshToken: %v", err)
	}

	token, err := store.GetRefreshToken(ctx, "hash-1")
	if err != nil {
		t.Fatalf("GetRefreshToken: %v", err)
	}
	if token == nil || token.UserID != "u1" || token.Revoked {
		t.Fatalf("unexpected token: %+v", token)
	}

	if err := store.RevokeRefreshToken(ctx, "hash-1"); err != nil {
		t.Fatalf("RevokeRefreshToken: %v", err)
	}
	token, err = store.GetRefreshToken(ctx, "hash-1")
	if err != nil {
		t.Fatalf("GetRefreshToken: %v", err)
	}
	if !token.Revoked {
		t.Error("expected token to be revoked")
	}
}

func TestListTransactionsWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTestUser(t, store, "u1")

	dates := []domain.Date{
		domain.NewDate(2024, 5, 31),
		domain.NewDate(2024, 6, 1),
		domain.NewDate(2024, 6, 30),
		domain.NewDate(2024, 7, 1),
	}
	for i, d := range dates {
		if err := store.CreateTransaction(ctx, tx(string(rune('a'+i)), "u1", "", 10, domain.StatusOutgoing, d)); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	got, err := store.ListTransactions(ctx, "u1",
		domain.NewDate(2024, 6, 1), domain.NewDate(2024, 6, 30))
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 June rows, got %d", len(got))
	}
	if got[0].Date != dates[1] || got[1].Date != dates[2] {
		t.Error("expected rows in ascending date order")
	}
}

func TestListRecurringSeriesEarliestRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTestUser(t, store, "u1")

	for i := 1; i <= 3; i++ {
		if err := store.CreateTransaction(ctx, tx("s1-"+string(rune('0'+i)), "u1", "series-1", 100, domain.StatusOutgoing, domain.NewDate(2024, i, 15))); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}
	if err := store.CreateTransaction(ctx, tx("one", "u1", "", 5, domain.StatusOutgoing, domain.NewDate(2024, 1, 1))); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	series, err := store.ListRecurringSeries(ctx, "u1")
	if err != nil {
		t.Fatalf("ListRecurringSeries: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("expected 1 series row, got %d", len(series))
	}
	if series[0].Date != domain.NewDate(2024, 1, 15) {
		t.Errorf("expected the earliest occurrence, got %s", series[0].Date)
	}
}

func TestUpdateAndDeleteSeries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTestUser(t, store, "u1")

	for i := 1; i <= 3; i++ {
		if err := store.CreateTransaction(ctx, tx("s1-"+string(rune('0'+i)), "u1", "series-1", 100, domain.StatusOutgoing, domain.NewDate(2024, i, 15))); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	n, err := store.UpdateSeriesDetails(ctx, "u1", "series-1", &domain.Transaction{
		Amount:      decimal.NewFromInt(150),
		Currency:    "EUR",
		Category:    "RENT",
		Status:      domain.StatusOutgoing,
		Description: "updated",
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("UpdateSeriesDetails: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows updated, got %d", n)
	}

	rows, err := store.ListSeriesTransactions(ctx, "u1", "series-1")
	if err != nil {
		t.Fatalf("ListSeriesTransactions: %v", err)
	}
	for _, row := range rows {
		if !row.Amount.Equal(decimal.NewFromInt(150)) || row.Description != "updated" {
			t.Errorf("row %s not updated: amount=%s description=%q", row.ID, row.Amount, row.Description)
		}
	}

	n, err = store.DeleteSeries(ctx, "u1", "series-1")
	if err != nil {
		t.Fatalf("DeleteSeries: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows deleted, got %d", n)
	}
}

func TestSumByStatusDecimalExact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTestUser(t, store, "u1")

	amounts := []string{"0.10", "0.20", "0.30"}
	for i, a := range amounts {
		amount, _ := decimal.NewFromString(a)
		row := tx(string(rune('a'+i)), "u1", "", 0, domain.StatusOutgoing, domain.NewDate(2024, 1, i+1))
		row.Amount = amount
		if err := store.CreateTransaction(ctx, row); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	total, err := store.SumByStatus(ctx, "u1", domain.StatusOutgoing,
		domain.NewDate(2024, 1, 1), domain.NewDate(2024, 12, 31))
	if err != nil {
		t.Fatalf("SumByStatus: %v", err)
	}
	want, _ := decimal.NewFromString("0.60")
	if !total.Equal(want) {
		t.Errorf("expected exactly 0.60, got %s", total)
	}
}

func TestSavingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTestUser(t, store, "u1")

	sv := &domain.Saving{ID: "sv1", UserID: "u1", Currency: "GOLD", Amount: decimal.NewFromFloat(12.5)}
	if err := store.CreateSaving(ctx, sv); err != nil {
		t.Fatalf("CreateSaving: %v", err)
	}

	if err := store.UpdateSavingAmount(ctx, "u1", "sv1", decimal.NewFromInt(20)); err != nil {
		t.Fatalf("UpdateSavingAmount: %v", err)
	}

	got, err := store.GetSaving(ctx, "u1", "sv1")
	if err != nil {
		t.Fatalf("GetSaving: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected 20, got %s", got.Amount)
	}

	byCurrency, err := store.ListSavingsByCurrency(ctx, "u1", "GOLD")
	if err != nil {
		t.Fatalf("ListSavingsByCurrency: %v", err)
	}
	if len(byCurrency) != 1 {
		t.Errorf("expected 1 GOLD entry, got %d", len(byCurrency))
	}

	if err := store.DeleteSaving(ctx, "u1", "sv1"); err != nil {
		t.Fatalf("DeleteSaving: %v", err)
	}
	if err := store.DeleteSaving(ctx, "u1", "sv1"); err == nil {
		t.Error("expected not found on second delete")
	}
}

func TestSavingGoalRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTestUser(t, store, "u1")

	g := &domain.SavingGoal{
		ID:            "g1",
		UserID:        "u1",
		GoalName:      "emergency fund",
		GoalAmount:    decimal.NewFromInt(5000),
		Currency:      "EUR",
		InitialAmount: decimal.Zero,
		StartDate:     domain.NewDate(2024, 1, 1),
		TargetDate:    domain.NewDate(2025, 1, 1),
		GoalStatus:    domain.GoalActive,
	}
	if err := store.CreateSavingGoal(ctx, g); err != nil {
		t.Fatalf("CreateSavingGoal: %v", err)
	}

	g.GoalStatus = domain.GoalCompleted
	if err := store.UpdateSavingGoal(ctx, g); err != nil {
		t.Fatalf("UpdateSavingGoal: %v", err)
	}

	got, err := store.GetSavingGoal(ctx, "u1", "g1")
	if err != nil {
		t.Fatalf("GetSavingGoal: %v", err)
	}
	if got.GoalStatus != domain.GoalCompleted {
		t.Errorf("expected COMPLETED, got %s", got.GoalStatus)
	}
	if got.TargetDate != domain.NewDate(2025, 1, 1) {
		t.Errorf("expected target 01-01-2025, got %s", got.TargetDate)
	}
}
