package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/service"
)

// ============================================================
// Expenses: one-time transactions
// ============================================================

func createTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/expenses")
		defer span.End()

		var req domain.TransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tx, err := svc.CreateTransaction(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, tx)
	}
}

func listTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/expenses")
		defer span.End()

		year, err := queryInt(r, "year")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		month, err := queryInt(r, "month")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		filter := domain.TransactionFilter{
			Year:     year,
			Month:    month,
			Category: r.URL.Query().Get("category"),
			Status:   r.URL.Query().Get("status"),
			Currency: r.URL.Query().Get("currency"),
		}
		if v := r.URL.Query().Get("date"); v != "" {
			d, err := domain.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "date must be dd-MM-yyyy")
				return
			}
			filter.Date = d
		}

		txs, err := svc.ListTransactions(ctx, UserIDFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("count", len(txs)))

		if txs == nil {
			txs = []domain.Transaction{}
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func getTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/expenses/{id}")
		defer span.End()

		tx, err := svc.GetTransaction(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, tx)
	}
}

func updateTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/expenses/{id}")
		defer span.End()

		var req domain.UpdateTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tx, err := svc.UpdateTransaction(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, tx)
	}
}

func deleteTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/expenses/{id}")
		defer span.End()

		if err := svc.DeleteTransaction(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Summaries
// ============================================================

func monthlySummaryHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/expenses/summary/monthly")
		defer span.End()

		year, yearErr := queryInt(r, "year")
		month, monthErr := queryInt(r, "month")
		if yearErr != nil {
			handleServiceError(w, yearErr, logger)
			return
		}
		if monthErr != nil {
			handleServiceError(w, monthErr, logger)
			return
		}
		if year == 0 || month == 0 {
			writeError(w, http.StatusBadRequest, "year and month query parameters are required")
			return
		}

		summary, err := svc.MonthlySummary(ctx, UserIDFromContext(ctx), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}

func annualSummaryHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/expenses/summary/annual")
		defer span.End()

		year, err := queryInt(r, "year")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if year == 0 {
			writeError(w, http.StatusBadRequest, "year query parameter is required")
			return
		}

		summary, err := svc.AnnualSummary(ctx, UserIDFromContext(ctx), year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}
