package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"hbank/internal/models"
	"hbank/internal/money"

	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxBodyBytes    = 1 << 16
	// rates are stored as numeric(30, 18)
	maxRateIntegerDigits  = 12
	maxRateFractionDigits = 12
)

var errInvalidRate = errors.New("invalid rate")

// decode reads a JSON body into dest and runs its validate tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("%w: %w", money.ErrInvalidValue, err)
	}
	if err := h.validate.Struct(dest); err != nil {
		return fmt.Errorf("%w: %w", money.ErrInvalidValue, err)
	}
	return nil
}

// decodeOptional is decode for requests that may be sent without a body. An
// empty body is validated as the zero request.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dest any) error {
	err := h.decode(w, r, dest)
	if !errors.Is(err, io.EOF) {
		return err
	}
	if err := h.validate.Struct(dest); err != nil {
		return fmt.Errorf("%w: %w", money.ErrInvalidValue, err)
	}
	return nil
}

// parsePositiveAmount reads a positive amount with no more decimals than
// currency allows.
func parsePositiveAmount(raw string, currency money.Currency) (money.Money, error) {
	amount, err := money.ParseAmount(raw, currency)
	if err != nil {
		return money.Money{}, err
	}
	if !amount.IsPositive() {
		return money.Money{}, fmt.Errorf("%w: amount must be positive", money.ErrInvalidAmount)
	}
	return amount, nil
}

func parseRate(raw string) (float64, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: %w", money.ErrInvalidValue, errInvalidRate)
	}
	if -rate.Exponent() > maxRateFractionDigits || rate.NumDigits()+int(rate.Exponent()) > maxRateIntegerDigits {
		return 0, fmt.Errorf("%w: %w", money.ErrInvalidValue, errInvalidRate)
	}
	value, _ := rate.Float64()
	return value, nil
}

func parsePage(r *http.Request) models.Page {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := strconv.Atoi(query.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return models.Page{Limit: limit, Offset: offset}
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
