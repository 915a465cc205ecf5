package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/infra/observability"
	"github.com/finwell/expense-tracker-api/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	authSvc *service.AuthService,
	txSvc *service.TransactionService,
	savingsSvc *service.SavingsService,
	currencySvc *service.CurrencyService,
	metrics *observability.Metrics,
	dbPing func() error,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(metricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(dbPing))
	r.Get("/readyz", readyzHandler(dbPing))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Authentication ---
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authRegisterHandler(authSvc, logger))
		r.Post("/login", authLoginHandler(authSvc, logger))
		r.Post("/refresh", authRefreshHandler(authSvc, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))
			r.Post("/logout", authLogoutHandler(authSvc, logger))
		})
	})

	// --- Protected API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(authSvc, logger))

		// =============================================
		// Expenses
		// POST/GET /api/expenses
		// GET/PUT/DELETE /api/expenses/{id}
		// =============================================
		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", createTransactionHandler(txSvc, logger))
			r.Get("/", listTransactionsHandler(txSvc, logger))

			r.Get("/summary/monthly", monthlySummaryHandler(txSvc, logger))
			r.Get("/summary/annual", annualSummaryHandler(txSvc, logger))

			// =============================================
			// Recurring series
			// POST/GET /api/expenses/recurring
			// GET/PUT/DELETE /api/expenses/recurring/{seriesId}
			// =============================================
			r.Route("/recurring", func(r chi.Router) {
				r.Post("/", createRecurringHandler(txSvc, logger))
				r.Get("/", listRecurringHandler(txSvc, logger))
				r.Get("/{seriesId}", getSeriesHandler(txSvc, logger))
				r.Put("/{seriesId}", updateSeriesHandler(txSvc, logger))
				r.Delete("/{seriesId}", deleteSeriesHandler(txSvc, logger))
			})

			r.Get("/{id}", getTransactionHandler(txSvc, logger))
			r.Put("/{id}", updateTransactionHandler(txSvc, logger))
			r.Delete("/{id}", deleteTransactionHandler(txSvc, logger))
		})

		// =============================================
		// Savings and goals
		// =============================================
		r.Route("/savings", func(r chi.Router) {
			r.Post("/", createSavingHandler(savingsSvc, logger))
			r.Get("/", listSavingsHandler(savingsSvc, logger))
			r.Put("/", updateSavingHandler(savingsSvc, logger))

			r.Route("/goals", func(r chi.Router) {
				r.Post("/", createSavingGoalHandler(savingsSvc, logger))
				r.Get("/", listSavingGoalsHandler(savingsSvc, logger))
				r.Get("/{id}", getSavingGoalHandler(savingsSvc, logger))
				r.Put("/{id}", updateSavingGoalHandler(savingsSvc, logger))
				r.Put("/{id}/status", updateSavingGoalStatusHandler(savingsSvc, logger))
				r.Delete("/{id}", deleteSavingGoalHandler(savingsSvc, logger))
			})

			r.Get("/{id}", getSavingHandler(savingsSvc, logger))
			r.Delete("/{id}", deleteSavingHandler(savingsSvc, logger))
		})

		// =============================================
		// User, settings, conversion, usage
		// =============================================
		r.Route("/user", func(r chi.Router) {
			r.Get("/", getUserInfoHandler(authSvc, logger))
			r.Get("/me", getUserInfoHandler(authSvc, logger))

			for _, metric := range []string{totalBudget, totalIncome, totalOutgoings} {
				r.Get("/"+metric+"/{year}/{month}", monthlyTotalHandler(txSvc, logger, metric))
				r.Get("/annual-"+metric+"/{year}", annualTotalHandler(txSvc, logger, metric))
			}
		})
		r.Post("/settings/setFavCurrency", setFavoriteCurrencyHandler(authSvc, logger))
		r.Get("/currency/convert", convertCurrencyHandler(currencySvc, logger))
		r.Get("/usage", usageHandler(metrics))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(dbPing func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		dbStatus := "healthy"
		start := time.Now()
		if err := dbPing(); err != nil {
			dbStatus = "unhealthy"
		}
		latency := time.Since(start).Milliseconds()

		status := http.StatusOK
		if dbStatus != "healthy" {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]any{
			"status":      dbStatus,
			"database":    map[string]any{"status": dbStatus, "latencyMs": latency},
			"lastChecked": now,
		})
	}
}

func readyzHandler(dbPing func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := dbPing(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// metricsMiddleware records request counts by status class and per-path
// latency.
func metricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			metrics.IncrRequest(strconv.Itoa(ww.Status()))
			if pattern := chi.RouteContext(r.Context()).RoutePattern(); pattern != "" {
				metrics.RecordRequestDuration(r.Method+" "+pattern, time.Since(start))
			}
		})
	}
}
