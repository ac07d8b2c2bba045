// Package services coordinates the money, deposit and withdrawal domain with
// storage, audit and realtime delivery.
package services

import (
	"context"
	"errors"
	"time"

	"hbank/internal/deposit"
	"hbank/internal/money"
	"hbank/internal/store"
	"hbank/internal/websocket"
	"hbank/internal/withdrawal"
)

var (
	ErrRateUnavailable    = errors.New("no rate published")
	ErrDuplicateRate      = errors.New("rate sequence already published")
	ErrUnknownRate        = errors.New("unknown rate sequence")
	ErrDepositNotFound    = errors.New("deposit not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrRateMismatch       = errors.New("quoted rate mismatch")
)

// Rates is the rate feed as seen by the HTTP layer.
type Rates interface {
	Publish(ctx context.Context, req PublishRateRequest) (money.Rate, error)
	Latest(ctx context.Context) (money.Rate, error)
	BySequence(ctx context.Context, sequenceNumber string) (money.Rate, error)
	History(ctx context.Context, limit, offset int) ([]money.Rate, error)
}

// Deposits is the deposit lifecycle as seen by the HTTP layer.
type Deposits interface {
	Create(ctx context.Context, req CreateDepositRequest) (deposit.Deposit, error)
	Schedule(ctx context.Context, actorID, id, scheduleID string) (deposit.Deposit, error)
	Execute(ctx context.Context, actorID, id, transactionID string) (deposit.Deposit, error)
	Fail(ctx context.Context, actorID, id, reason string) (deposit.Deposit, error)
	Get(ctx context.Context, id string) (deposit.Deposit, error)
	ListByAccount(ctx context.Context, accountID string, status deposit.Status, limit, offset int) ([]deposit.Deposit, error)
}

// Withdrawals is the redeem lifecycle as seen by the HTTP layer.
type Withdrawals interface {
	Create(ctx context.Context, req CreateWithdrawalRequest) (withdrawal.Withdrawal, error)
	Schedule(ctx context.Context, actorID, id, scheduleID string) (withdrawal.Withdrawal, error)
	Execute(ctx context.Context, actorID, id, transactionID string) (withdrawal.Withdrawal, error)
	Fail(ctx context.Context, actorID, id, reason string) (withdrawal.Withdrawal, error)
	Get(ctx context.Context, id string) (withdrawal.Withdrawal, error)
	ListByAccount(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) ([]withdrawal.Withdrawal, error)
}

type RateStore interface {
	Publish(ctx context.Context, tx store.Tx, input store.RateInput) error
	Latest(ctx context.Context) (store.RateRow, error)
	GetBySequence(ctx context.Context, sequenceNumber string) (store.RateRow, error)
	History(ctx context.Context, limit, offset int) ([]store.RateRow, error)
}

type DepositStore interface {
	Create(ctx context.Context, tx store.Execer, rec deposit.Record) error
	Update(ctx context.Context, tx store.Execer, rec deposit.Record, from deposit.Status) (int64, error)
	GetByID(ctx context.Context, id string) (deposit.Record, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (deposit.Record, error)
	ListByAccount(ctx context.Context, accountID string, status deposit.Status, limit, offset int) ([]deposit.Record, error)
}

type WithdrawalStore interface {
	Create(ctx context.Context, tx store.Execer, rec withdrawal.Record) error
	Update(ctx context.Context, tx store.Execer, rec withdrawal.Record, from withdrawal.Status) (int64, error)
	GetByID(ctx context.Context, id string) (withdrawal.Record, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (withdrawal.Record, error)
	ListByAccount(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) ([]withdrawal.Record, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type RateHub interface {
	BroadcastRate(update websocket.RateUpdate)
}

type DepositHub interface {
	BroadcastDeposit(accountID string, update websocket.DepositUpdate)
}

type WithdrawalHub interface {
	BroadcastWithdrawal(accountID string, update websocket.WithdrawalUpdate)
}

func formatMoney(m money.Money) string {
	return money.FormatTinyUnits(m.ToTinyUnits(), m.Currency())
}

type clock func() time.Time
