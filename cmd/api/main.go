package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/config"
	"github.com/finwell/expense-tracker-api/internal/handler"
	"github.com/finwell/expense-tracker-api/internal/infra/cache"
	"github.com/finwell/expense-tracker-api/internal/infra/events"
	"github.com/finwell/expense-tracker-api/internal/infra/observability"
	"github.com/finwell/expense-tracker-api/internal/infra/rates"
	"github.com/finwell/expense-tracker-api/internal/infra/resilience"
	"github.com/finwell/expense-tracker-api/internal/port"
	"github.com/finwell/expense-tracker-api/internal/recurring"
	"github.com/finwell/expense-tracker-api/internal/service"
	"github.com/finwell/expense-tracker-api/internal/storage/sqlite"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// Amounts serialize as JSON numbers, matching the API contract.
	decimal.MarshalJSONWithoutQuotes = true

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("db_path", cfg.DBPath),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
		zap.Int("recurring_min_year", cfg.RecurringMinYear),
		zap.Int("recurring_max_year", cfg.RecurringMaxYear),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "expense-tracker-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	store, err := sqlite.NewStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("rates-api")

	// --- Rates client + cache ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	ratesClient := rates.NewClient(httpClient, cfg.RatesAPIURL, cfg.RatesAPIKey, cb, resilienceCfg)
	ratesCache := cache.New[map[string]decimal.Decimal](cfg.CacheTTL)

	// --- Events ---
	var publisher port.EventPublisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Fatal("failed to connect to broker", zap.Error(err))
		}
		publisher = p
		logger.Info("event publishing enabled",
			zap.String("exchange", cfg.AMQPExchange),
			zap.String("queue", cfg.AMQPQueue),
		)
	} else {
		logger.Info("event publishing disabled: AMQP_URL not set")
	}
	defer publisher.Close()

	// --- Recurring engine ---
	engineCfg := recurring.DefaultConfig()
	engineCfg.MinYear = cfg.RecurringMinYear
	engineCfg.MaxYear = cfg.RecurringMaxYear
	engine := recurring.NewEngine(engineCfg)

	// --- Services ---
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)
	txSvc := service.NewTransactionService(store, store, publisher, engine, metrics, logger)
	savingsSvc := service.NewSavingsService(store, logger)
	currencySvc := service.NewCurrencyService(ratesClient, ratesCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(authSvc, txSvc, savingsSvc, currencySvc, metrics, store.Ping, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
