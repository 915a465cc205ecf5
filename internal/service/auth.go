// Package service: AuthService handles registration, login, JWT token
// management and account settings.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/port"
)

var authTracer = otel.Tracer("service/auth")

const (
	bcryptCost        = 12
	minPasswordLength = 8
)

// AuthService orchestrates authentication flows.
type AuthService struct {
	store      port.AuthStore
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.AuthStore, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// ============================================================
// Register: POST /auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if username == "" {
		return nil, &domain.ErrValidation{Field: "username", Message: "username is required"}
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "a valid email is required"}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &domain.ErrValidation{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		}
	}

	if existing, err := s.store.GetUserByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("check existing username: %w", err)
	} else if existing != nil {
		return nil, &domain.ErrConflict{Message: "username already taken"}
	}
	if existing, err := s.store.GetUserByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("check existing email: %w", err)
	} else if existing != nil {
		return nil, &domain.ErrConflict{Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		PasswordHash:   string(hash),
		MembershipPlan: domain.PlanBasic,
		Role:           domain.RoleCustomer,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
	)

	return &domain.RegisterResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Message:  "registration successful",
	}, nil
}

// ============================================================
// Login: POST /auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.String("username", req.Username))

	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: failed password attempt",
			zap.String("user_id", user.ID),
		)
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	accessToken, err := s.signAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshHash, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.store.StoreRefreshToken(ctx, user.ID, refreshHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))

	return &domain.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		UserID:       user.ID,
		Username:     user.Username,
	}, nil
}

// ============================================================
// Account settings and profile
// ============================================================

// GetUserInfo returns the authenticated user's profile.
func (s *AuthService) GetUserInfo(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.GetUserInfo")
	defer span.End()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return user, nil
}

// SetFavoriteCurrency stores the currency that overrides the currency
// field on newly created transactions.
func (s *AuthService) SetFavoriteCurrency(ctx context.Context, userID, currency string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.SetFavoriteCurrency")
	defer span.End()

	if !domain.ContainsString(domain.TransactionCurrencies, currency) {
		return &domain.ErrValidation{
			Field:   "favoriteCurrency",
			Message: fmt.Sprintf("currency must be one of %s", strings.Join(domain.TransactionCurrencies, ", ")),
		}
	}

	if err := s.store.SetFavoriteCurrency(ctx, userID, currency); err != nil {
		return err
	}

	s.logger.Info("favorite currency updated",
		zap.String("user_id", userID),
		zap.String("currency", currency),
	)
	return nil
}
