package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"hbank/internal/db"
	"hbank/internal/deposit"
	"hbank/internal/money"
	"hbank/internal/services"
	"hbank/internal/validator"
	"hbank/internal/withdrawal"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log/level"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain and service errors onto status codes.
// Order matters: wrapped errors match every sentinel in their chain.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		level.Error(h.logger).Log(
			"msg", "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	respondError(w, status, code)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, money.ErrExpiredRate):
		return http.StatusGone, "rate_expired"
	case errors.Is(err, services.ErrRateMismatch):
		return http.StatusUnprocessableEntity, "rate_mismatch"
	case errors.Is(err, services.ErrUnknownRate):
		return http.StatusUnprocessableEntity, "unknown_rate"
	case errors.Is(err, services.ErrRateUnavailable):
		return http.StatusNotFound, "rate_unavailable"
	case errors.Is(err, services.ErrDepositNotFound):
		return http.StatusNotFound, "deposit_not_found"
	case errors.Is(err, services.ErrWithdrawalNotFound):
		return http.StatusNotFound, "withdrawal_not_found"
	case errors.Is(err, deposit.ErrInvalidState), errors.Is(err, withdrawal.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, services.ErrDuplicateRate), db.IsUniqueViolation(err):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, validator.ErrInvalidAccountID):
		return http.StatusBadRequest, "invalid_account"
	case errors.Is(err, money.ErrTooManyDecimals), errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, money.ErrInvalidValue), errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, deposit.ErrDeposit), errors.Is(err, withdrawal.ErrWithdrawal):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
