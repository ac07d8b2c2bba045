package money

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DefaultRateValidity is how long a published rate may be used for conversions.
const DefaultRateValidity = 5 * time.Minute

// Rate is the USDC price of one HUSD, valid between PublishedAt and ValidUntil.
// Expiry is evaluated against a clock on every call; a Rate never changes.
type Rate struct {
	value       float64
	sequence    string
	publishedAt time.Time
	validUntil  time.Time
}

// NewRate builds a rate valid for DefaultRateValidity. A zero publishedAt means now.
func NewRate(value float64, sequence string, publishedAt time.Time) (Rate, error) {
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}
	return NewRateWithWindow(value, sequence, publishedAt, publishedAt.Add(DefaultRateValidity))
}

func NewRateWithWindow(value float64, sequence string, publishedAt, validUntil time.Time) (Rate, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return Rate{}, fmt.Errorf("%w: rate must be a positive finite number", ErrInvalidValue)
	}
	if !validUntil.After(publishedAt) {
		return Rate{}, fmt.Errorf("%w: validity window must end after publication", ErrInvalidValue)
	}
	return Rate{
		value:       value,
		sequence:    sequence,
		publishedAt: publishedAt,
		validUntil:  validUntil,
	}, nil
}

func (r Rate) Value() float64 {
	return r.value
}

func (r Rate) SequenceNumber() string {
	return r.sequence
}

func (r Rate) PublishedAt() time.Time {
	return r.publishedAt
}

func (r Rate) ValidUntil() time.Time {
	return r.validUntil
}

func (r Rate) IsExpired() bool {
	return r.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether now is strictly after ValidUntil.
func (r Rate) IsExpiredAt(now time.Time) bool {
	return now.After(r.validUntil)
}

func (r Rate) IsValid() bool {
	return !r.IsExpired()
}

func (r Rate) IsValidAt(now time.Time) bool {
	return !r.IsExpiredAt(now)
}

func (r Rate) AssertValid() error {
	return r.AssertValidAt(time.Now())
}

func (r Rate) AssertValidAt(now time.Time) error {
	if r.IsExpiredAt(now) {
		return fmt.Errorf("%w: sequence %s expired at %s", ErrExpiredRate, r.sequence, r.validUntil.UTC().Format(time.RFC3339))
	}
	return nil
}

func (r Rate) RemainingValidity() time.Duration {
	return r.RemainingValidityAt(time.Now())
}

func (r Rate) RemainingValidityAt(now time.Time) time.Duration {
	remaining := r.validUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r Rate) Convert(amount float64, from, to Currency) (float64, error) {
	return r.ConvertAt(amount, from, to, time.Now())
}

func (r Rate) ConvertAt(amount float64, from, to Currency, now time.Time) (float64, error) {
	if err := r.AssertValidAt(now); err != nil {
		return 0, err
	}
	return r.apply(amount, from, to)
}

func (r Rate) apply(amount float64, from, to Currency) (float64, error) {
	switch {
	case from == to:
		return amount, nil
	case from == CurrencyUSDC && to == CurrencyHUSD:
		return amount / r.value, nil
	case from == CurrencyHUSD && to == CurrencyUSDC:
		return amount * r.value, nil
	default:
		return 0, fmt.Errorf("%w: no rate from %s to %s", ErrInvalidValue, from, to)
	}
}

type rateJSON struct {
	Value          float64   `json:"value"`
	SequenceNumber string    `json:"sequenceNumber"`
	Timestamp      time.Time `json:"timestamp"`
	ValidUntil     time.Time `json:"validUntil"`
	IsExpired      bool      `json:"isExpired"`
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(rateJSON{
		Value:          r.value,
		SequenceNumber: r.sequence,
		Timestamp:      r.publishedAt,
		ValidUntil:     r.validUntil,
		IsExpired:      r.IsExpired(),
	})
}

func (r *Rate) UnmarshalJSON(data []byte) error {
	var raw rateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewRateWithWindow(raw.Value, raw.SequenceNumber, raw.Timestamp, raw.ValidUntil)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
