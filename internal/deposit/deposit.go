// Package deposit models a single mint of HUSD against USDC, priced by the
// rate captured when the deposit was requested.
package deposit

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
	// ErrDeposit is returned when a deposit cannot be created or restored.
	ErrDeposit = errors.New("deposit rejected")
	// ErrInvalidState is returned when a transition is not allowed from the current status.
	ErrInvalidState = errors.New("invalid deposit state")
)

const (
	SourceCurrency      = money.CurrencyUSDC
	DestinationCurrency = money.CurrencyHUSD
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
		return "", fmt.Errorf("%w: unknown status %q", ErrDeposit, raw)
	}
}

type event string

const (
	eventSchedule event = "schedule"
	eventExecute  event = "execute"
	eventFail     event = "fail"
)

// transitions is the whole state machine. Anything missing is rejected.
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
		return "", fmt.Errorf("%w: cannot %s a %s deposit", ErrInvalidState, e, current)
	}
	return to, nil
}

// Deposit is an entity whose transitions return a new value; a Deposit that
// has been handed out is never written to.
type Deposit struct {
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

// Create opens a pending deposit of amount USDC priced at rate.
func Create(accountID string, amount float64, rate money.Rate, memo string) (Deposit, error) {
	account, err := validator.ParseAccountID(accountID)
	if err != nil {
		return Deposit{}, fmt.Errorf("%w: %w", ErrDeposit, err)
	}
	if math.IsNaN(amount) || amount <= 0 {
		return Deposit{}, fmt.Errorf("%w: amount must be positive", ErrDeposit)
	}
	requested, err := money.USDC(amount)
	if err != nil {
		return Deposit{}, fmt.Errorf("%w: %w", ErrDeposit, err)
	}
	now := time.Now()
	if rate.IsExpiredAt(now) {
		return Deposit{}, fmt.Errorf("%w: %w", ErrDeposit, rate.AssertValidAt(now))
	}
	return Deposit{
		id:        uuid.NewString(),
		account:   account,
		requested: requested,
		rate:      rate,
		status:    StatusPending,
		createdAt: now,
		memo:      memo,
	}, nil
}

func (d Deposit) ID() string                   { return d.id }
func (d Deposit) Account() validator.AccountID { return d.account }
func (d Deposit) RequestedAmount() money.Money { return d.requested }
func (d Deposit) Rate() money.Rate             { return d.rate }
func (d Deposit) Status() Status               { return d.status }
func (d Deposit) ScheduleID() string           { return d.scheduleID }
func (d Deposit) CreatedAt() time.Time         { return d.createdAt }
func (d Deposit) ExecutedAt() time.Time        { return d.executedAt }
func (d Deposit) TransactionID() string        { return d.transactionID }
func (d Deposit) Memo() string                 { return d.memo }

// Schedule records the ledger's pending scheduled transaction.
func (d Deposit) Schedule(scheduleID string) (Deposit, error) {
	to, err := next(d.status, eventSchedule)
	if err != nil {
		return Deposit{}, err
	}
	d.status = to
	d.scheduleID = scheduleID
	return d, nil
}

// Execute records the confirming ledger transaction.
func (d Deposit) Execute(transactionID string) (Deposit, error) {
	to, err := next(d.status, eventExecute)
	if err != nil {
		return Deposit{}, err
	}
	d.status = to
	d.transactionID = transactionID
	d.executedAt = time.Now()
	return d, nil
}

func (d Deposit) Fail(reason string) (Deposit, error) {
	to, err := next(d.status, eventFail)
	if err != nil {
		return Deposit{}, err
	}
	d.status = to
	if reason != "" {
		if d.memo == "" {
			d.memo = "failed: " + reason
		} else {
			d.memo = d.memo + " | failed: " + reason
		}
	}
	return d, nil
}

// DestinationAmount is the HUSD quoted at creation. It is derived from the
// captured rate every time and does not depend on the current clock.
func (d Deposit) DestinationAmount() (money.Money, error) {
	return d.requested.ConvertAtQuote(DestinationCurrency, d.rate)
}

// Record is the flat, persistable form of a Deposit.
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

func (d Deposit) Record() Record {
	rec := Record{
		ID:              d.id,
		UserAccountID:   d.account.String(),
		RequestedAmount: d.requested,
		Rate:            d.rate,
		Status:          d.status,
		ScheduleID:      d.scheduleID,
		CreatedAt:       d.createdAt,
		TransactionID:   d.transactionID,
		Memo:            d.memo,
	}
	if !d.executedAt.IsZero() {
		executedAt := d.executedAt
		rec.ExecutedAt = &executedAt
	}
	return rec
}

// Restore rebuilds a Deposit from storage. Rate expiry is not checked since a
// stored deposit legitimately outlives its rate.
func Restore(rec Record) (Deposit, error) {
	if rec.ID == "" {
		return Deposit{}, fmt.Errorf("%w: missing id", ErrDeposit)
	}
	account, err := validator.ParseAccountID(rec.UserAccountID)
	if err != nil {
		return Deposit{}, fmt.Errorf("%w: %w", ErrDeposit, err)
	}
	if rec.RequestedAmount.Currency() != SourceCurrency || !rec.RequestedAmount.IsPositive() {
		return Deposit{}, fmt.Errorf("%w: requested amount must be positive %s", ErrDeposit, SourceCurrency)
	}
	if rec.Rate.Value() <= 0 {
		return Deposit{}, fmt.Errorf("%w: missing rate", ErrDeposit)
	}
	status, err := ParseStatus(string(rec.Status))
	if err != nil {
		return Deposit{}, err
	}
	d := Deposit{
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
		d.executedAt = *rec.ExecutedAt
	}
	return d, nil
}

type depositJSON struct {
	Record
	DestinationAmount money.Money `json:"destinationAmount"`
}

func (d Deposit) MarshalJSON() ([]byte, error) {
	destination, err := d.DestinationAmount()
	if err != nil {
		return nil, err
	}
	return json.Marshal(depositJSON{Record: d.Record(), DestinationAmount: destination})
}

func (d *Deposit) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	restored, err := Restore(rec)
	if err != nil {
		return err
	}
	*d = restored
	return nil
}
