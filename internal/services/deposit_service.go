package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hbank/internal/db"
	"hbank/internal/deposit"
	"hbank/internal/money"
	"hbank/internal/validator"
	"hbank/internal/websocket"

	"github.com/jmoiron/sqlx"
)

// RateSource supplies the rate a new deposit or withdrawal is priced at.
type RateSource interface {
	Latest(ctx context.Context) (money.Rate, error)
	BySequence(ctx context.Context, sequenceNumber string) (money.Rate, error)
}

// pricingRate returns the latest rate. A quoted sequence other than the latest
// fails with ErrUnknownRate if it was never published and ErrRateMismatch if
// it has been superseded.
func pricingRate(ctx context.Context, rates RateSource, quoted string) (money.Rate, error) {
	rate, err := rates.Latest(ctx)
	if err != nil {
		return money.Rate{}, err
	}
	if quoted == "" || quoted == rate.SequenceNumber() {
		return rate, nil
	}
	if _, err := rates.BySequence(ctx, quoted); err != nil {
		return money.Rate{}, err
	}
	return money.Rate{}, fmt.Errorf("%w: quoted %s superseded by %s", ErrRateMismatch, quoted, rate.SequenceNumber())
}

type DepositService struct {
	txRunner db.TxRunner
	rates    RateSource
	store    DepositStore
	audit    AuditStore
	hub      DepositHub
}

func NewDepositService(txRunner db.TxRunner, rates RateSource, depositStore DepositStore, auditStore AuditStore, hub DepositHub) *DepositService {
	return &DepositService{
		txRunner: txRunner,
		rates:    rates,
		store:    depositStore,
		audit:    auditStore,
		hub:      hub,
	}
}

// CreateDepositRequest asks to mint HUSD for Amount USDC. When QuotedSequence
// is set the deposit is only created if that rate is still the latest one.
type CreateDepositRequest struct {
	AccountID      string
	Amount         float64
	QuotedSequence string
	Memo           string
}

func (s *DepositService) Create(ctx context.Context, req CreateDepositRequest) (deposit.Deposit, error) {
	rate, err := pricingRate(ctx, s.rates, req.QuotedSequence)
	if err != nil {
		return deposit.Deposit{}, err
	}
	d, err := deposit.Create(req.AccountID, req.Amount, rate, req.Memo)
	if err != nil {
		return deposit.Deposit{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.Create(ctx, tx, d.Record()); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"amount":        formatMoney(d.RequestedAmount()),
			"rate_sequence": rate.SequenceNumber(),
			"account_id":    d.Account().String(),
		})
		return s.audit.Log(ctx, tx, "", "deposit.create", "deposit", d.ID(), string(data))
	})
	if err != nil {
		return deposit.Deposit{}, err
	}
	s.broadcast(d)
	return d, nil
}

func (s *DepositService) Schedule(ctx context.Context, actorID, id, scheduleID string) (deposit.Deposit, error) {
	return s.transition(ctx, actorID, id, "deposit.schedule", func(d deposit.Deposit) (deposit.Deposit, error) {
		return d.Schedule(scheduleID)
	})
}

func (s *DepositService) Execute(ctx context.Context, actorID, id, transactionID string) (deposit.Deposit, error) {
	return s.transition(ctx, actorID, id, "deposit.execute", func(d deposit.Deposit) (deposit.Deposit, error) {
		return d.Execute(transactionID)
	})
}

func (s *DepositService) Fail(ctx context.Context, actorID, id, reason string) (deposit.Deposit, error) {
	return s.transition(ctx, actorID, id, "deposit.fail", func(d deposit.Deposit) (deposit.Deposit, error) {
		return d.Fail(reason)
	})
}

// transition loads the deposit under a row lock, applies fn and writes the
// result back only if nobody advanced the deposit in the meantime.
func (s *DepositService) transition(ctx context.Context, actorID, id, action string, fn func(deposit.Deposit) (deposit.Deposit, error)) (deposit.Deposit, error) {
	var updated deposit.Deposit
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rec, err := s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDepositNotFound
			}
			return err
		}
		current, err := deposit.Restore(rec)
		if err != nil {
			return err
		}
		updated, err = fn(current)
		if err != nil {
			return err
		}
		changed, err := s.store.Update(ctx, tx, updated.Record(), current.Status())
		if err != nil {
			return err
		}
		if changed == 0 {
			return fmt.Errorf("%w: deposit %s changed concurrently", deposit.ErrInvalidState, id)
		}
		data, _ := json.Marshal(map[string]string{
			"from": string(current.Status()),
			"to":   string(updated.Status()),
		})
		return s.audit.Log(ctx, tx, actorID, action, "deposit", id, string(data))
	})
	if err != nil {
		return deposit.Deposit{}, err
	}
	s.broadcast(updated)
	return updated, nil
}

func (s *DepositService) Get(ctx context.Context, id string) (deposit.Deposit, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deposit.Deposit{}, ErrDepositNotFound
		}
		return deposit.Deposit{}, fmt.Errorf("load deposit %s: %w", id, err)
	}
	return deposit.Restore(rec)
}

func (s *DepositService) ListByAccount(ctx context.Context, accountID string, status deposit.Status, limit, offset int) ([]deposit.Deposit, error) {
	account, err := validator.ParseAccountID(accountID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListByAccount(ctx, account.String(), status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	deposits := make([]deposit.Deposit, 0, len(records))
	for _, rec := range records {
		d, err := deposit.Restore(rec)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, nil
}

func (s *DepositService) broadcast(d deposit.Deposit) {
	update := websocket.DepositUpdate{
		DepositID:       d.ID(),
		Status:          string(d.Status()),
		RequestedAmount: formatMoney(d.RequestedAmount()),
		ScheduleID:      d.ScheduleID(),
		TransactionID:   d.TransactionID(),
	}
	if destination, err := d.DestinationAmount(); err == nil {
		update.DestinationAmount = formatMoney(destination)
	}
	s.hub.BroadcastDeposit(d.Account().String(), update)
}
