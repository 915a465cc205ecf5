package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/recurring"
	"github.com/finwell/expense-tracker-api/internal/service"
)

// ============================================================
// Expenses: recurring series
// ============================================================

func createRecurringHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/expenses/recurring")
		defer span.End()

		var def recurring.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		txs, err := svc.CreateRecurring(ctx, UserIDFromContext(ctx), def)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, txs)
	}
}

func listRecurringHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/expenses/recurring")
		defer span.End()

		series, err := svc.ListRecurringSeries(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if series == nil {
			series = []domain.Transaction{}
		}
		writeJSON(w, http.StatusOK, series)
	}
}

func getSeriesHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/expenses/recurring/{seriesId}")
		defer span.End()

		txs, err := svc.GetSeries(ctx, UserIDFromContext(ctx), chi.URLParam(r, "seriesId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, txs)
	}
}

func updateSeriesHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/expenses/recurring/{seriesId}")
		defer span.End()

		var def recurring.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		txs, err := svc.UpdateSeries(ctx, UserIDFromContext(ctx), chi.URLParam(r, "seriesId"), def)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, txs)
	}
}

func deleteSeriesHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/expenses/recurring/{seriesId}")
		defer span.End()

		if err := svc.DeleteRecurringSeries(ctx, UserIDFromContext(ctx), chi.URLParam(r, "seriesId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
