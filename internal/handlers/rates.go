package handlers

import (
	"errors"
	"net/http"
	"time"

	"hbank/internal/deposit"
	"hbank/internal/middleware"
	"hbank/internal/models"
	"hbank/internal/money"
	"hbank/internal/services"
	"hbank/internal/withdrawal"

	"github.com/go-chi/chi/v5"
)

type publishRateRequest struct {
	Value          string     `json:"value" validate:"required"`
	SequenceNumber string     `json:"sequenceNumber" validate:"omitempty,max=128"`
	Timestamp      *time.Time `json:"timestamp"`
	ValidUntil     *time.Time `json:"validUntil"`
}

func (h *Handler) PublishRate(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := middleware.OperatorIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req publishRateRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	value, err := parseRate(req.Value)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_rate")
		return
	}
	publish := services.PublishRateRequest{
		OperatorID:     operatorID,
		Value:          value,
		SequenceNumber: req.SequenceNumber,
	}
	if req.Timestamp != nil {
		publish.PublishedAt = *req.Timestamp
	}
	if req.ValidUntil != nil {
		publish.ValidUntil = *req.ValidUntil
	}
	rate, err := h.rates.Publish(r.Context(), publish)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rate)
}

func (h *Handler) LatestRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.Latest(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rate)
}

// RateBySequence returns any published rate, including retired ones, so a
// client can check what a quote was priced at.
func (h *Handler) RateBySequence(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.BySequence(r.Context(), chi.URLParam(r, "sequenceNumber"))
	if err != nil {
		if errors.Is(err, services.ErrUnknownRate) {
			respondError(w, http.StatusNotFound, "unknown_rate")
			return
		}
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rate)
}

func (h *Handler) RateHistory(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	rates, err := h.rates.History(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.RateHistory{Rates: rates, Page: page})
}

type quoteQuery struct {
	Amount   string `validate:"required"`
	Currency string `validate:"omitempty,currency"`
}

// quoteTargets maps the currency being paid in onto the one paid out: USDC
// prices a deposit and HUSD prices a withdrawal.
var quoteTargets = map[money.Currency]money.Currency{
	deposit.SourceCurrency:    deposit.DestinationCurrency,
	withdrawal.SourceCurrency: withdrawal.DestinationCurrency,
}

// Quote prices ?amount= of ?currency= (USDC by default) at the latest rate. It
// fails with 410 once the rate has expired.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	query := quoteQuery{Amount: r.URL.Query().Get("amount"), Currency: r.URL.Query().Get("currency")}
	if err := h.validate.Struct(query); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	source := deposit.SourceCurrency
	if query.Currency != "" {
		source, _ = money.ParseCurrency(query.Currency)
	}
	target, ok := quoteTargets[source]
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	amount, err := parsePositiveAmount(query.Amount, source)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	rate, err := h.rates.Latest(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	now := time.Now()
	if err := rate.AssertValidAt(now); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	destination, err := amount.ConvertTo(target, rate)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.Quote{
		Requested:        amount,
		Destination:      destination,
		Rate:             rate,
		ExpiresInSeconds: int64(rate.RemainingValidityAt(now) / time.Second),
	})
}
