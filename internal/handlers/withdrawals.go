package handlers

import (
	"net/http"

	"hbank/internal/models"
	"hbank/internal/services"
	"hbank/internal/validator"
	"hbank/internal/withdrawal"

	"github.com/go-chi/chi/v5"
)

type createWithdrawalRequest struct {
	AccountID          string `json:"userAccountId" validate:"required,hedera_account"`
	Amount             string `json:"amount" validate:"required"`
	RateSequenceNumber string `json:"rateSequenceNumber" validate:"omitempty,max=128"`
	Memo               string `json:"memo" validate:"max=256"`
}

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req createWithdrawalRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	amount, err := parsePositiveAmount(req.Amount, withdrawal.SourceCurrency)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	wd, err := h.withdrawals.Create(r.Context(), services.CreateWithdrawalRequest{
		AccountID:      req.AccountID,
		Amount:         amount.Amount(),
		QuotedSequence: req.RateSequenceNumber,
		Memo:           req.Memo,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wd)
}

func (h *Handler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	wd, err := h.withdrawals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wd)
}

func (h *Handler) ListAccountWithdrawals(w http.ResponseWriter, r *http.Request) {
	account, err := validator.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var status withdrawal.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err = withdrawal.ParseStatus(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_status")
			return
		}
	}
	page := parsePage(r)
	withdrawals, err := h.withdrawals.ListByAccount(r.Context(), account.String(), status, page.Limit, page.Offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.WithdrawalList{AccountID: account.String(), Withdrawals: withdrawals, Page: page})
}

func (h *Handler) ScheduleWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	h.settle(w, r, &req, func(operatorID, id string) (any, error) {
		return h.withdrawals.Schedule(r.Context(), operatorID, id, req.ScheduleID)
	})
}

func (h *Handler) ExecuteWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	h.settle(w, r, &req, func(operatorID, id string) (any, error) {
		return h.withdrawals.Execute(r.Context(), operatorID, id, req.TransactionID)
	})
}

func (h *Handler) FailWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req failRequest
	h.settle(w, r, &req, func(operatorID, id string) (any, error) {
		return h.withdrawals.Fail(r.Context(), operatorID, id, req.Reason)
	})
}
