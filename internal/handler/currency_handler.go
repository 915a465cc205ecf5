package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finwell/expense-tracker-api/internal/service"
)

// ============================================================
// Currency conversion
// ============================================================

func convertCurrencyHandler(svc *service.CurrencyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/currency/convert")
		defer span.End()

		q := r.URL.Query()
		from, to := q.Get("from"), q.Get("to")
		if from == "" || to == "" {
			writeError(w, http.StatusBadRequest, "from and to query parameters are required")
			return
		}

		amount, err := decimal.NewFromString(q.Get("amount"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount must be a decimal number")
			return
		}

		result, err := svc.Convert(ctx, from, to, amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
