package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/infra/observability"
	"github.com/finwell/expense-tracker-api/internal/service"
)

// ============================================================
// User profile and settings
// ============================================================

func getUserInfoHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/user")
		defer span.End()

		user, err := authSvc.GetUserInfo(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func setFavoriteCurrencyHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/settings/setFavCurrency")
		defer span.End()

		var req struct {
			FavoriteCurrency string `json:"favoriteCurrency"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := authSvc.SetFavoriteCurrency(ctx, UserIDFromContext(ctx), req.FavoriteCurrency); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"favoriteCurrency": req.FavoriteCurrency,
			"message":          "favorite currency updated",
		})
	}
}

// ============================================================
// Scalar budget figures
// GET /api/user/{budget,income,outgoings}/{year}/{month}
// GET /api/user/annual-{budget,income,outgoings}/{year}
// ============================================================

const (
	totalBudget    = "budget"
	totalIncome    = "income"
	totalOutgoings = "outgoings"
)

func monthlyTotalHandler(txSvc *service.TransactionService, logger *zap.Logger, metric string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/user/"+metric)
		defer span.End()

		year, yearErr := pathInt(r, "year")
		month, monthErr := pathInt(r, "month")
		if yearErr != nil {
			handleServiceError(w, yearErr, logger)
			return
		}
		if monthErr != nil {
			handleServiceError(w, monthErr, logger)
			return
		}

		income, outgoings, err := txSvc.MonthlyTotals(ctx, UserIDFromContext(ctx), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeTotal(w, metric, income, outgoings)
	}
}

func annualTotalHandler(txSvc *service.TransactionService, logger *zap.Logger, metric string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/user/annual-"+metric)
		defer span.End()

		year, err := pathInt(r, "year")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		income, outgoings, err := txSvc.AnnualTotals(ctx, UserIDFromContext(ctx), year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeTotal(w, metric, income, outgoings)
	}
}

func writeTotal(w http.ResponseWriter, metric string, income, outgoings decimal.Decimal) {
	amount := income
	switch metric {
	case totalOutgoings:
		amount = outgoings
	case totalBudget:
		amount = income.Sub(outgoings)
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"amount": amount})
}

// usageHandler exposes a counter snapshot for dashboards that cannot
// scrape /metrics directly.
func usageHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetUsageSnapshot())
	}
}
