// Package withdrawal models a redemption of HUSD back into USDC, priced by the
// rate captured when the withdrawal was requested.
package withdrawal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"hbank/internal/money"
	"hbank/internal/validator"

	"github.com/google/uuid"
)

var (
	// ErrWithdrawal is returned when a withdrawal cannot be created or restored.
	ErrWithdrawal = errors.New("withdrawal rejected")
	// ErrInvalidState is returned when a transition is not allowed from the current status.
	ErrInvalidState = errors.New("invalid withdrawal state")
)

const (
	SourceCurrency      = money.CurrencyHUSD
	DestinationCurrency = money.CurrencyUSDC
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusScheduled, StatusCompleted, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrWithdrawal, raw)
	}
}

type event string

const (
	eventSchedule event = "schedule"
	eventExecute  event = "execute"
	eventFail     event = "fail"
)

var transitions = map[Status]map[event]Status{
	StatusPending: {
		eventSchedule: StatusScheduled,
		eventFail:     StatusFailed,
	},
	StatusScheduled: {
		eventExecute: StatusCompleted,
		eventFail:    StatusFailed,
	},
}

func next(current Status, e event) (Status, error) {
	to, ok := transitions[current][e]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s withdrawal", ErrInvalidState, e, current)
	}
	return to, nil
}

// Withdrawal burns Amount HUSD from an account and pays out the USDC quoted
// at creation. Transitions return a new value.
type Withdrawal struct {
	id            string
	account       validator.AccountID
	requested     money.Money
	rate          money.Rate
	status        Status
	scheduleID    string
	createdAt     time.Time
	executedAt    time.Time
	transactionID string
	memo          string
}

func Create(accountID string, amount float64, rate money.Rate, memo string) (Withdrawal, error) {
	account, err := validator.ParseAccountID(accountID)
	if err != nil {
		return Withdrawal{}, fmt.Errorf("%w: %w", ErrWithdrawal, err)
	}
	if math.IsNaN(amount) || amount <= 0 {
		return Withdrawal{}, fmt.Errorf("%w: amount must be positive", ErrWithdrawal)
	}
	requested, err := money.HUSD(amount)
	if err != nil {
		return Withdrawal{}, fmt.Errorf("%w: %w", ErrWithdrawal, err)
	}
	now := time.Now()
	if err := rate.AssertValidAt(now); err != nil {
		return Withdrawal{}, fmt.Errorf("%w: %w", ErrWithdrawal, err)
	}
	return Withdrawal{
		id:        uuid.NewString(),
		account:   account,
		requested: requested,
		rate:      rate,
		status:    StatusPending,
		createdAt: now,
		memo:      memo,
	}, nil
}

func (w Withdrawal) ID() string                   { return w.id }
func (w Withdrawal) Account() validator.AccountID { return w.account }
func (w Withdrawal) RequestedAmount() money.Money { return w.requested }
func (w Withdrawal) Rate() money.Rate             { return w.rate }
func (w Withdrawal) Status() Status               { return w.status }
func (w Withdrawal) ScheduleID() string           { return w.scheduleID }
func (w Withdrawal) CreatedAt() time.Time         { return w.createdAt }
func (w Withdrawal) ExecutedAt() time.Time        { return w.executedAt }
func (w Withdrawal) TransactionID() string        { return w.transactionID }
func (w Withdrawal) Memo() string                 { return w.memo }

func (w Withdrawal) Schedule(scheduleID string) (Withdrawal, error) {
	to, err := next(w.status, eventSchedule)
	if err != nil {
		return Withdrawal{}, err
	}
	w.status = to
	w.scheduleID = scheduleID
	return w, nil
}

func (w Withdrawal) Execute(transactionID string) (Withdrawal, error) {
	to, err := next(w.status, eventExecute)
	if err != nil {
		return Withdrawal{}, err
	}
	w.status = to
	w.transactionID = transactionID
	w.executedAt = time.Now()
	return w, nil
}

func (w Withdrawal) Fail(reason string) (Withdrawal, error) {
	to, err := next(w.status, eventFail)
	if err != nil {
		return Withdrawal{}, err
	}
	w.status = to
	if reason != "" {
		if w.memo == "" {
			w.memo = "failed: " + reason
		} else {
			w.memo = w.memo + " | failed: " + reason
		}
	}
	return w, nil
}

// DestinationAmount is the USDC paid out, derived from the captured rate
// regardless of whether it has since expired.
func (w Withdrawal) DestinationAmount() (money.Money, error) {
	return w.requested.ConvertAtQuote(DestinationCurrency, w.rate)
}

type Record struct {
	ID              string      `json:"id"`
	UserAccountID   string      `json:"userAccountId"`
	RequestedAmount money.Money `json:"requestedAmount"`
	Rate            money.Rate  `json:"rate"`
	Status          Status      `json:"status"`
	ScheduleID      string      `json:"scheduleId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	ExecutedAt      *time.Time  `json:"executedAt,omitempty"`
	TransactionID   string      `json:"transactionId,omitempty"`
	Memo            string      `json:"memo,omitempty"`
}

func (w Withdrawal) Record() Record {
	rec := Record{
		ID:              w.id,
		UserAccountID:   w.account.String(),
		RequestedAmount: w.requested,
		Rate:            w.rate,
		Status:          w.status,
		ScheduleID:      w.scheduleID,
		CreatedAt:       w.createdAt,
		TransactionID:   w.transactionID,
		Memo:            w.memo,
	}
	if !w.executedAt.IsZero() {
		executedAt := w.executedAt
		rec.ExecutedAt = &executedAt
	}
	return rec
}

// Restore rebuilds a Withdrawal from storage without checking rate expiry.
func Restore(rec Record) (Withdrawal, error) {
	if rec.ID == "" {
		return Withdrawal{}, fmt.Errorf("%w: missing id", ErrWithdrawal)
	}
	account, err := validator.ParseAccountID(rec.UserAccountID)
	if err != nil {
		return Withdrawal{}, fmt.Errorf("%w: %w", ErrWithdrawal, err)
	}
	if rec.RequestedAmount.Currency() != SourceCurrency || !rec.RequestedAmount.IsPositive() {
		return Withdrawal{}, fmt.Errorf("%w: requested amount must be positive %s", ErrWithdrawal, SourceCurrency)
	}
	if rec.Rate.Value() <= 0 {
		return Withdrawal{}, fmt.Errorf("%w: missing rate", ErrWithdrawal)
	}
	status, err := ParseStatus(string(rec.Status))
	if err != nil {
		return Withdrawal{}, err
	}
	w := Withdrawal{
		id:            rec.ID,
		account:       account,
		requested:     rec.RequestedAmount,
		rate:          rec.Rate,
		status:        status,
		scheduleID:    rec.ScheduleID,
		createdAt:     rec.CreatedAt,
		transactionID: rec.TransactionID,
		memo:          rec.Memo,
	}
	if rec.ExecutedAt != nil {
		w.executedAt = *rec.ExecutedAt
	}
	return w, nil
}

type withdrawalJSON struct {
	Record
	DestinationAmount money.Money `json:"destinationAmount"`
}

func (w Withdrawal) MarshalJSON() ([]byte, error) {
	destination, err := w.DestinationAmount()
	if err != nil {
		return nil, err
	}
	return json.Marshal(withdrawalJSON{Record: w.Record(), DestinationAmount: destination})
}

func (w *Withdrawal) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	restored, err := Restore(rec)
	if err != nil {
		return err
	}
	*w = restored
	return nil
}
