package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hbank/internal/db"
	"hbank/internal/validator"
	"hbank/internal/websocket"
	"hbank/internal/withdrawal"

	"github.com/jmoiron/sqlx"
)

type WithdrawalService struct {
	txRunner db.TxRunner
	rates    RateSource
	store    WithdrawalStore
	audit    AuditStore
	hub      WithdrawalHub
}

func NewWithdrawalService(txRunner db.TxRunner, rates RateSource, withdrawalStore WithdrawalStore, auditStore AuditStore, hub WithdrawalHub) *WithdrawalService {
	return &WithdrawalService{
		txRunner: txRunner,
		rates:    rates,
		store:    withdrawalStore,
		audit:    auditStore,
		hub:      hub,
	}
}

// CreateWithdrawalRequest asks to redeem Amount HUSD for USDC.
type CreateWithdrawalRequest struct {
	AccountID      string
	Amount         float64
	QuotedSequence string
	Memo           string
}

func (s *WithdrawalService) Create(ctx context.Context, req CreateWithdrawalRequest) (withdrawal.Withdrawal, error) {
	rate, err := pricingRate(ctx, s.rates, req.QuotedSequence)
	if err != nil {
		return withdrawal.Withdrawal{}, err
	}
	w, err := withdrawal.Create(req.AccountID, req.Amount, rate, req.Memo)
	if err != nil {
		return withdrawal.Withdrawal{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.Create(ctx, tx, w.Record()); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"amount":        formatMoney(w.RequestedAmount()),
			"rate_sequence": rate.SequenceNumber(),
			"account_id":    w.Account().String(),
		})
		return s.audit.Log(ctx, tx, "", "withdrawal.create", "withdrawal", w.ID(), string(data))
	})
	if err != nil {
		return withdrawal.Withdrawal{}, err
	}
	s.broadcast(w)
	return w, nil
}

func (s *WithdrawalService) Schedule(ctx context.Context, actorID, id, scheduleID string) (withdrawal.Withdrawal, error) {
	return s.transition(ctx, actorID, id, "withdrawal.schedule", func(w withdrawal.Withdrawal) (withdrawal.Withdrawal, error) {
		return w.Schedule(scheduleID)
	})
}

func (s *WithdrawalService) Execute(ctx context.Context, actorID, id, transactionID string) (withdrawal.Withdrawal, error) {
	return s.transition(ctx, actorID, id, "withdrawal.execute", func(w withdrawal.Withdrawal) (withdrawal.Withdrawal, error) {
		return w.Execute(transactionID)
	})
}

func (s *WithdrawalService) Fail(ctx context.Context, actorID, id, reason string) (withdrawal.Withdrawal, error) {
	return s.transition(ctx, actorID, id, "withdrawal.fail", func(w withdrawal.Withdrawal) (withdrawal.Withdrawal, error) {
		return w.Fail(reason)
	})
}

func (s *WithdrawalService) transition(ctx context.Context, actorID, id, action string, fn func(withdrawal.Withdrawal) (withdrawal.Withdrawal, error)) (withdrawal.Withdrawal, error) {
	var updated withdrawal.Withdrawal
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rec, err := s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWithdrawalNotFound
			}
			return err
		}
		current, err := withdrawal.Restore(rec)
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
			return fmt.Errorf("%w: withdrawal %s changed concurrently", withdrawal.ErrInvalidState, id)
		}
		data, _ := json.Marshal(map[string]string{
			"from": string(current.Status()),
			"to":   string(updated.Status()),
		})
		return s.audit.Log(ctx, tx, actorID, action, "withdrawal", id, string(data))
	})
	if err != nil {
		return withdrawal.Withdrawal{}, err
	}
	s.broadcast(updated)
	return updated, nil
}

func (s *WithdrawalService) Get(ctx context.Context, id string) (withdrawal.Withdrawal, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return withdrawal.Withdrawal{}, ErrWithdrawalNotFound
		}
		return withdrawal.Withdrawal{}, fmt.Errorf("load withdrawal %s: %w", id, err)
	}
	return withdrawal.Restore(rec)
}

func (s *WithdrawalService) ListByAccount(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) ([]withdrawal.Withdrawal, error) {
	account, err := validator.ParseAccountID(accountID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListByAccount(ctx, account.String(), status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	withdrawals := make([]withdrawal.Withdrawal, 0, len(records))
	for _, rec := range records {
		w, err := withdrawal.Restore(rec)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, nil
}

func (s *WithdrawalService) broadcast(w withdrawal.Withdrawal) {
	update := websocket.WithdrawalUpdate{
		WithdrawalID:    w.ID(),
		Status:          string(w.Status()),
		RequestedAmount: formatMoney(w.RequestedAmount()),
		ScheduleID:      w.ScheduleID(),
		TransactionID:   w.TransactionID(),
	}
	if destination, err := w.DestinationAmount(); err == nil {
		update.DestinationAmount = formatMoney(destination)
	}
	s.hub.BroadcastWithdrawal(w.Account().String(), update)
}
