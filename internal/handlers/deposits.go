package handlers

import (
	"net/http"

	"hbank/internal/deposit"
	"hbank/internal/middleware"
	"hbank/internal/models"
	"hbank/internal/services"
	"hbank/internal/validator"

	"github.com/go-chi/chi/v5"
)

type createDepositRequest struct {
	AccountID          string `json:"userAccountId" validate:"required,hedera_account"`
	Amount             string `json:"amount" validate:"required"`
	RateSequenceNumber string `json:"rateSequenceNumber" validate:"omitempty,max=128"`
	Memo               string `json:"memo" validate:"max=256"`
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	amount, err := parsePositiveAmount(req.Amount, deposit.SourceCurrency)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	d, err := h.deposits.Create(r.Context(), services.CreateDepositRequest{
		AccountID:      req.AccountID,
		Amount:         amount.Amount(),
		QuotedSequence: req.RateSequenceNumber,
		Memo:           req.Memo,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *Handler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := h.deposits.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handler) ListAccountDeposits(w http.ResponseWriter, r *http.Request) {
	account, err := validator.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var status deposit.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err = deposit.ParseStatus(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_status")
			return
		}
	}
	page := parsePage(r)
	deposits, err := h.deposits.ListByAccount(r.Context(), account.String(), status, page.Limit, page.Offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.DepositList{AccountID: account.String(), Deposits: deposits, Page: page})
}

type scheduleRequest struct {
	ScheduleID string `json:"scheduleId" validate:"required,max=128"`
}

type executeRequest struct {
	TransactionID string `json:"transactionId" validate:"required,max=128"`
}

type failRequest struct {
	Reason string `json:"reason" validate:"max=512"`
}

func (h *Handler) ScheduleDeposit(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	h.settle(w, r, &req, func(operatorID, id string) (any, error) {
		return h.deposits.Schedule(r.Context(), operatorID, id, req.ScheduleID)
	})
}

func (h *Handler) ExecuteDeposit(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	h.settle(w, r, &req, func(operatorID, id string) (any, error) {
		return h.deposits.Execute(r.Context(), operatorID, id, req.TransactionID)
	})
}

func (h *Handler) FailDeposit(w http.ResponseWriter, r *http.Request) {
	var req failRequest
	h.settle(w, r, &req, func(operatorID, id string) (any, error) {
		return h.deposits.Fail(r.Context(), operatorID, id, req.Reason)
	})
}

// settle decodes req and runs one operator-driven transition on the deposit
// or withdrawal named by the id path parameter. An empty body decodes as the
// zero request, which the required tags then reject where a field is needed.
func (h *Handler) settle(w http.ResponseWriter, r *http.Request, req any, apply func(operatorID, id string) (any, error)) {
	operatorID, ok := middleware.OperatorIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.decodeOptional(w, r, req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	result, err := apply(operatorID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
