package service_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/infra/observability"
	"github.com/finwell/expense-tracker-api/internal/recurring"
	"github.com/finwell/expense-tracker-api/internal/service"
)

// --- Fakes ---

type fakeAuthStore struct {
	users  map[string]*domain.User
	tokens map[string]*domain.RefreshToken
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		users:  make(map[string]*domain.User),
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (f *fakeAuthStore) CreateUser(_ context.Context, user *domain.User) error {
	u := *user
	f.users[user.ID] = &u
	return nil
}

func (f *fakeAuthStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeAuthStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeAuthStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeAuthStore) SetFavoriteCurrency(_ context.Context, userID, currency string) error {
	u, ok := f.users[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	u.FavoriteCurrency = currency
	return nil
}

func (f *fakeAuthStore) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	f.tokens[tokenHash] = &domain.RefreshToken{TokenHash: tokenHash, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeAuthStore) GetRefreshToken(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	if t, ok := f.tokens[tokenHash]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeAuthStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	if t, ok := f.tokens[tokenHash]; ok {
		t.Revoked = true
	}
	return nil
}

func (f *fakeAuthStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

type fakeTxStore struct {
	txs map[string]domain.Transaction
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{txs: make(map[string]domain.Transaction)}
}

func dateKey(d domain.Date) int {
	return d.Year*10000 + d.Month*100 + d.Day
}

func (f *fakeTxStore) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	f.txs[tx.ID] = *tx
	return nil
}

func (f *fakeTxStore) GetTransaction(_ context.Context, userID, txID string) (*domain.Transaction, error) {
	if tx, ok := f.txs[txID]; ok && tx.UserID == userID {
		return &tx, nil
	}
	return nil, nil
}

func (f *fakeTxStore) UpdateTransaction(_ context.Context, tx *domain.Transaction) error {
	if _, ok := f.txs[tx.ID]; !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
	}
	f.txs[tx.ID] = *tx
	return nil
}

func (f *fakeTxStore) DeleteTransaction(_ context.Context, userID, txID string) error {
	if tx, ok := f.txs[txID]; ok && tx.UserID == userID {
		delete(f.txs, txID)
		return nil
	}
	return &domain.ErrNotFound{Resource: "transaction", ID: txID}
}

func (f *fakeTxStore) ListTransactions(_ context.Context, userID string, from, to domain.Date) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range f.txs {
		if tx.UserID != userID {
			continue
		}
		k := dateKey(tx.Date)
		if k >= dateKey(from) && k <= dateKey(to) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return dateKey(out[i].Date) < dateKey(out[j].Date) })
	return out, nil
}

func (f *fakeTxStore) ListRecurringSeries(_ context.Context, userID string) ([]domain.Transaction, error) {
	earliest := make(map[string]domain.Transaction)
	for _, tx := range f.txs {
		if tx.UserID != userID || tx.RecurringSeriesID == "" {
			continue
		}
		cur, ok := earliest[tx.RecurringSeriesID]
		if !ok || dateKey(tx.Date) < dateKey(cur.Date) {
			earliest[tx.RecurringSeriesID] = tx
		}
	}
	var out []domain.Transaction
	for _, tx := range earliest {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return dateKey(out[i].Date) < dateKey(out[j].Date) })
	return out, nil
}

func (f *fakeTxStore) ListSeriesTransactions(_ context.Context, userID, seriesID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.RecurringSeriesID == seriesID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return dateKey(out[i].Date) < dateKey(out[j].Date) })
	return out, nil
}

func (f *fakeTxStore) UpdateSeriesDetails(_ context.Context, userID, seriesID string, details *domain.Transaction) (int, error) {
	n := 0
	for id, tx := range f.txs {
		if tx.UserID == userID && tx.RecurringSeriesID == seriesID {
			tx.Amount = details.Amount
			tx.Currency = details.Currency
			tx.Category = details.Category
			tx.Status = details.Status
			tx.Description = details.Description
			tx.UpdatedAt = details.UpdatedAt
			f.txs[id] = tx
			n++
		}
	}
	return n, nil
}

func (f *fakeTxStore) DeleteSeries(_ context.Context, userID, seriesID string) (int, error) {
	n := 0
	for id, tx := range f.txs {
		if tx.UserID == userID && tx.RecurringSeriesID == seriesID {
			delete(f.txs, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTxStore) SumByStatus(_ context.Context, userID, status string, from, to domain.Date) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range f.txs {
		if tx.UserID != userID || tx.Status != status {
			continue
		}
		k := dateKey(tx.Date)
		if k >= dateKey(from) && k <= dateKey(to) {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) PublishTransactionEvent(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newTransactionService(txs *fakeTxStore, users *fakeAuthStore, pub *fakePublisher) *service.TransactionService {
	return service.NewTransactionService(
		txs,
		users,
		pub,
		recurring.NewEngine(recurring.DefaultConfig()),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func seedUser(users *fakeAuthStore, id, favoriteCurrency string) {
	users.users[id] = &domain.User{
		ID:               id,
		Username:         "testuser",
		Email:            "test@example.com",
		FavoriteCurrency: favoriteCurrency,
	}
}

// --- One-time transactions ---

func TestCreateTransaction(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	req := &domain.TransactionRequest{
		Amount:      decimal.NewFromInt(250),
		Currency:    "USD",
		Category:    "RENT",
		Status:      domain.StatusOutgoing,
		Description: "march rent",
		Date:        domain.NewDate(2024, 3, 1),
	}

	tx, err := svc.CreateTransaction(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.Type != domain.TypeOneTime {
		t.Errorf("expected type %s, got %s", domain.TypeOneTime, tx.Type)
	}
	if tx.Currency != "USD" {
		t.Errorf("expected currency USD, got %s", tx.Currency)
	}
	if len(pub.events) != 1 || pub.events[0] != service.EventTransactionCreated {
		t.Errorf("expected one created event, got %v", pub.events)
	}
}

func TestCreateTransactionFavoriteCurrencyOverride(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "TRY")
	svc := newTransactionService(txs, users, pub)

	tx, err := svc.CreateTransaction(context.Background(), "user-1", &domain.TransactionRequest{
		Amount:   decimal.NewFromInt(100),
		Currency: "USD",
		Category: "SHOPPING",
		Status:   domain.StatusOutgoing,
		Date:     domain.NewDate(2024, 5, 10),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.Currency != "TRY" {
		t.Errorf("expected favorite currency TRY to override, got %s", tx.Currency)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	cases := []struct {
		name string
		req  domain.TransactionRequest
	}{
		{"zero amount", domain.TransactionRequest{Amount: decimal.Zero, Currency: "USD", Category: "RENT", Status: domain.StatusOutgoing, Date: domain.NewDate(2024, 1, 1)}},
		{"bad currency", domain.TransactionRequest{Amount: decimal.NewFromInt(1), Currency: "XBT", Category: "RENT", Status: domain.StatusOutgoing, Date: domain.NewDate(2024, 1, 1)}},
		{"bad category", domain.TransactionRequest{Amount: decimal.NewFromInt(1), Currency: "USD", Category: "NOPE", Status: domain.StatusOutgoing, Date: domain.NewDate(2024, 1, 1)}},
		{"bad status", domain.TransactionRequest{Amount: decimal.NewFromInt(1), Currency: "USD", Category: "RENT", Status: "PENDING", Date: domain.NewDate(2024, 1, 1)}},
		{"missing date", domain.TransactionRequest{Amount: decimal.NewFromInt(1), Currency: "USD", Category: "RENT", Status: domain.StatusOutgoing}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateTransaction(context.Background(), "user-1", &tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestUpdateTransactionRejectsRecurring(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	txs.txs["rec-1"] = domain.Transaction{
		ID: "rec-1", UserID: "user-1", Type: domain.TypeRecurring,
		RecurringSeriesID: "series-1", Date: domain.NewDate(2024, 1, 15),
	}

	desc := "changed"
	_, err := svc.UpdateTransaction(context.Background(), "user-1", "rec-1", &domain.UpdateTransactionRequest{Description: &desc})
	if err == nil {
		t.Fatal("expected error updating a recurring row directly")
	}
}

// --- Recurring series ---

func recurringDef() recurring.Definition {
	return recurring.Definition{
		Amount:      decimal.NewFromInt(1200),
		Currency:    "EUR",
		Category:    "RENT",
		Status:      domain.StatusOutgoing,
		Description: "monthly rent",
		DayOfMonth:  31,
		StartMonth:  1,
		StartYear:   2024,
		EndMonth:    4,
		EndYear:     2024,
	}
}

func TestCreateRecurringMaterializesSeries(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	created, err := svc.CreateRecurring(context.Background(), "user-1", recurringDef())
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(created))
	}

	// Day 31 clamps to each month's length.
	wantDays := []int{31, 29, 31, 30}
	for i, tx := range created {
		if tx.Date.Day != wantDays[i] {
			t.Errorf("occurrence %d: expected day %d, got %d", i, wantDays[i], tx.Date.Day)
		}
		if tx.RecurringSeriesID != created[0].RecurringSeriesID {
			t.Error("occurrences must share a series id")
		}
		if tx.Type != domain.TypeRecurring {
			t.Errorf("expected type %s, got %s", domain.TypeRecurring, tx.Type)
		}
	}
}

func TestCreateRecurringInvalidDefinition(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	def := recurringDef()
	def.DayOfMonth = 0
	def.Category = "NOT_A_CATEGORY"

	if _, err := svc.CreateRecurring(context.Background(), "user-1", def); err == nil {
		t.Fatal("expected validation error")
	}
	if len(txs.txs) != 0 {
		t.Errorf("no rows should be created on validation failure, got %d", len(txs.txs))
	}
}

func TestUpdateSeriesDetailsOnly(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	created, err := svc.CreateRecurring(context.Background(), "user-1", recurringDef())
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	seriesID := created[0].RecurringSeriesID
	originalIDs := make(map[string]bool)
	for _, tx := range created {
		originalIDs[tx.ID] = true
	}

	def := recurringDef()
	def.Amount = decimal.NewFromInt(1500)
	def.Description = "rent increase"

	updated, err := svc.UpdateSeries(context.Background(), "user-1", seriesID, def)
	if err != nil {
		t.Fatalf("UpdateSeries: %v", err)
	}
	if len(updated) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(updated))
	}
	for _, tx := range updated {
		if !originalIDs[tx.ID] {
			t.Error("unchanged schedule must keep existing row ids")
		}
		if !tx.Amount.Equal(decimal.NewFromInt(1500)) {
			t.Errorf("expected amount 1500, got %s", tx.Amount)
		}
	}
}

func TestUpdateSeriesScheduleRematerializes(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	created, err := svc.CreateRecurring(context.Background(), "user-1", recurringDef())
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	seriesID := created[0].RecurringSeriesID

	def := recurringDef()
	def.EndMonth = 6 // extend the window

	updated, err := svc.UpdateSeries(context.Background(), "user-1", seriesID, def)
	if err != nil {
		t.Fatalf("UpdateSeries: %v", err)
	}
	if len(updated) != 6 {
		t.Fatalf("expected 6 occurrences after extension, got %d", len(updated))
	}
	for _, tx := range updated {
		if tx.RecurringSeriesID != seriesID {
			t.Error("re-materialized rows must keep the series id")
		}
	}
	if len(txs.txs) != 6 {
		t.Errorf("old rows must be dropped, store has %d rows", len(txs.txs))
	}
}

func TestDeleteTransactionRemovesWholeSeries(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	created, err := svc.CreateRecurring(context.Background(), "user-1", recurringDef())
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}

	if err := svc.DeleteTransaction(context.Background(), "user-1", created[2].ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if len(txs.txs) != 0 {
		t.Errorf("deleting one recurring row must drop the series, %d rows left", len(txs.txs))
	}
}

func TestDeleteRecurringSeriesNotFound(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	if err := svc.DeleteRecurringSeries(context.Background(), "user-1", "missing"); err == nil {
		t.Fatal("expected not found error")
	}
}

// --- Summaries ---

func TestMonthlySummary(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	seed := []struct {
		amount   int64
		category string
		status   string
		day      int
	}{
		{3000, "SALARY", domain.StatusIncome, 1},
		{1200, "RENT", domain.StatusOutgoing, 5},
		{300, "SHOPPING", domain.StatusOutgoing, 12},
		{200, "SHOPPING", domain.StatusOutgoing, 20},
	}
	for i, s := range seed {
		txs.txs[string(rune('a'+i))] = domain.Transaction{
			ID: string(rune('a' + i)), UserID: "user-1",
			Amount: decimal.NewFromInt(s.amount), Currency: "EUR",
			Category: s.category, Status: s.status,
			Date: domain.NewDate(2024, 6, s.day), Type: domain.TypeOneTime,
		}
	}

	summary, err := svc.MonthlySummary(context.Background(), "user-1", 2024, 6)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}

	if !summary.TotalIncome.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected income 3000, got %s", summary.TotalIncome)
	}
	if !summary.TotalOutgoings.Equal(decimal.NewFromInt(1700)) {
		t.Errorf("expected outgoings 1700, got %s", summary.TotalOutgoings)
	}
	if !summary.TotalBudget.Equal(decimal.NewFromInt(1300)) {
		t.Errorf("expected budget 1300, got %s", summary.TotalBudget)
	}

	shopping := summary.Categories["SHOPPING"]
	if len(shopping) != 1 {
		t.Fatalf("expected one SHOPPING bucket, got %d", len(shopping))
	}
	if shopping[0].TransactionCount != 2 {
		t.Errorf("expected 2 SHOPPING transactions, got %d", shopping[0].TransactionCount)
	}
	if !shopping[0].TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected SHOPPING total 500, got %s", shopping[0].TotalAmount)
	}
}

func TestMonthlyAndAnnualTotals(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	seedUser(users, "user-1", "")
	svc := newTransactionService(txs, users, pub)

	seed := []struct {
		id     string
		amount int64
		status string
		month  int
	}{
		{"a", 3000, domain.StatusIncome, 6},
		{"b", 1000, domain.StatusOutgoing, 6},
		{"c", 500, domain.StatusOutgoing, 7},
	}
	for _, s := range seed {
		txs.txs[s.id] = domain.Transaction{
			ID: s.id, UserID: "user-1",
			Amount: decimal.NewFromInt(s.amount), Currency: "EUR",
			Category: "OTHER", Status: s.status,
			Date: domain.NewDate(2024, s.month, 15), Type: domain.TypeOneTime,
		}
	}

	income, outgoings, err := svc.MonthlyTotals(context.Background(), "user-1", 2024, 6)
	if err != nil {
		t.Fatalf("MonthlyTotals: %v", err)
	}
	if !income.Equal(decimal.NewFromInt(3000)) || !outgoings.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected 3000/1000 for June, got %s/%s", income, outgoings)
	}

	income, outgoings, err = svc.AnnualTotals(context.Background(), "user-1", 2024)
	if err != nil {
		t.Fatalf("AnnualTotals: %v", err)
	}
	if !income.Equal(decimal.NewFromInt(3000)) || !outgoings.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected 3000/1500 for the year, got %s/%s", income, outgoings)
	}

	if _, _, err := svc.MonthlyTotals(context.Background(), "user-1", 2024, 0); err == nil {
		t.Error("expected validation error for month 0")
	}
}

func TestMonthlySummaryInvalidMonth(t *testing.T) {
	txs, users, pub := newFakeTxStore(), newFakeAuthStore(), &fakePublisher{}
	svc := newTransactionService(txs, users, pub)

	if _, err := svc.MonthlySummary(context.Background(), "user-1", 2024, 13); err == nil {
		t.Fatal("expected validation error for month 13")
	}
}
