package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/service"
)

func newAuthService(store *fakeAuthStore) *service.AuthService {
	return service.NewAuthService(store, "test-secret", 15*time.Minute, 24*time.Hour, zap.NewNop())
}

func register(t *testing.T, svc *service.AuthService) *domain.RegisterResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	store := newFakeAuthStore()
	svc := newAuthService(store)

	resp := register(t, svc)
	if resp.UserID == "" {
		t.Fatal("expected a user id")
	}

	user := store.users[resp.UserID]
	if user.Role != domain.RoleCustomer || user.MembershipPlan != domain.PlanBasic {
		t.Errorf("expected CUSTOMER/BASIC defaults, got %s/%s", user.Role, user.MembershipPlan)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password must not be stored in plaintext")
	}

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.AccessToken == "" || login.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}

	claims, err := svc.ValidateAccessToken(login.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Sub != resp.UserID {
		t.Errorf("expected sub %s, got %s", resp.UserID, claims.Sub)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	store := newFakeAuthStore()
	svc := newAuthService(store)

	register(t, svc)

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "another-pass",
	})
	if err == nil {
		t.Fatal("expected conflict for duplicate username")
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "short",
	})
	if err == nil {
		t.Fatal("expected validation error for short password")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newFakeAuthStore()
	svc := newAuthService(store)
	register(t, svc)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newFakeAuthStore()
	svc := newAuthService(store)
	register(t, svc)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh must rotate the token")
	}

	// The old token is revoked and cannot be replayed.
	if _, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Fatal("expected replayed refresh token to be rejected")
	}
}

func TestLogoutRevokesAllTokens(t *testing.T) {
	store := newFakeAuthStore()
	svc := newAuthService(store)
	resp := register(t, svc)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(context.Background(), resp.UserID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Fatal("expected refresh to fail after logout")
	}
}

func TestSetFavoriteCurrency(t *testing.T) {
	store := newFakeAuthStore()
	svc := newAuthService(store)
	resp := register(t, svc)

	if err := svc.SetFavoriteCurrency(context.Background(), resp.UserID, "GBP"); err != nil {
		t.Fatalf("SetFavoriteCurrency: %v", err)
	}
	if store.users[resp.UserID].FavoriteCurrency != "GBP" {
		t.Error("favorite currency not persisted")
	}

	if err := svc.SetFavoriteCurrency(context.Background(), resp.UserID, "GOLD"); err == nil {
		t.Fatal("expected validation error for non-transaction currency")
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(newFakeAuthStore())

	if _, err := svc.ValidateAccessToken("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
