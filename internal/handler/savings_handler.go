package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/domain"
	"github.com/finwell/expense-tracker-api/internal/service"
)

// ============================================================
// Savings: balances
// ============================================================

func createSavingHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/savings")
		defer span.End()

		var req domain.SavingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sv, err := svc.CreateSaving(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, sv)
	}
}

func listSavingsHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/savings")
		defer span.End()

		savings, err := svc.ListSavings(ctx, UserIDFromContext(ctx), r.URL.Query().Get("currency"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if savings == nil {
			savings = []domain.Saving{}
		}
		writeJSON(w, http.StatusOK, savings)
	}
}

func getSavingHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/savings/{id}")
		defer span.End()

		sv, err := svc.GetSaving(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, sv)
	}
}

func updateSavingHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/savings")
		defer span.End()

		var req domain.UpdateSavingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sv, err := svc.UpdateSaving(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, sv)
	}
}

func deleteSavingHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/savings/{id}")
		defer span.End()

		if err := svc.DeleteSaving(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Savings: goals
// ============================================================

func createSavingGoalHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/savings/goals")
		defer span.End()

		var req domain.SavingGoalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		g, err := svc.CreateSavingGoal(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, g)
	}
}

func listSavingGoalsHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/savings/goals")
		defer span.End()

		goals, err := svc.ListSavingGoals(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if goals == nil {
			goals = []domain.SavingGoal{}
		}
		writeJSON(w, http.StatusOK, goals)
	}
}

func getSavingGoalHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/savings/goals/{id}")
		defer span.End()

		g, err := svc.GetSavingGoal(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, g)
	}
}

func updateSavingGoalHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/savings/goals/{id}")
		defer span.End()

		var req domain.SavingGoalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		g, err := svc.UpdateSavingGoal(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, g)
	}
}

func updateSavingGoalStatusHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/savings/goals/{id}/status")
		defer span.End()

		var req struct {
			GoalStatus string `json:"goalStatus"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		g, err := svc.UpdateSavingGoalStatus(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"), req.GoalStatus)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, g)
	}
}

func deleteSavingGoalHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/savings/goals/{id}")
		defer span.End()

		if err := svc.DeleteSavingGoal(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
