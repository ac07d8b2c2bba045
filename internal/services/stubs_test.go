package services

import (
	"context"
	"sync"

	"hbank/internal/deposit"
	"hbank/internal/money"
	"hbank/internal/store"
	"hbank/internal/websocket"
	"hbank/internal/withdrawal"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubRateStore struct {
	publishFn    func(ctx context.Context, tx store.Tx, input store.RateInput) error
	latestFn     func(ctx context.Context) (store.RateRow, error)
	bySequenceFn func(ctx context.Context, sequenceNumber string) (store.RateRow, error)
	historyFn    func(ctx context.Context, limit, offset int) ([]store.RateRow, error)
}

func (s stubRateStore) Publish(ctx context.Context, tx store.Tx, input store.RateInput) error {
	if s.publishFn == nil {
		return nil
	}
	return s.publishFn(ctx, tx, input)
}

func (s stubRateStore) Latest(ctx context.Context) (store.RateRow, error) {
	return s.latestFn(ctx)
}

func (s stubRateStore) GetBySequence(ctx context.Context, sequenceNumber string) (store.RateRow, error) {
	return s.bySequenceFn(ctx, sequenceNumber)
}

func (s stubRateStore) History(ctx context.Context, limit, offset int) ([]store.RateRow, error) {
	return s.historyFn(ctx, limit, offset)
}

// stubRateSource serves rate as the latest and also knows the retired rates
// in history.
type stubRateSource struct {
	rate    money.Rate
	err     error
	history []money.Rate
}

func (s stubRateSource) Latest(context.Context) (money.Rate, error) {
	return s.rate, s.err
}

func (s stubRateSource) BySequence(_ context.Context, sequenceNumber string) (money.Rate, error) {
	for _, rate := range append([]money.Rate{s.rate}, s.history...) {
		if rate.SequenceNumber() == sequenceNumber {
			return rate, nil
		}
	}
	return money.Rate{}, ErrUnknownRate
}

type stubDepositStore struct {
	createFn        func(ctx context.Context, tx store.Execer, rec deposit.Record) error
	updateFn        func(ctx context.Context, tx store.Execer, rec deposit.Record, from deposit.Status) (int64, error)
	getByIDFn       func(ctx context.Context, id string) (deposit.Record, error)
	getForUpdateFn  func(ctx context.Context, tx store.Getter, id string) (deposit.Record, error)
	listByAccountFn func(ctx context.Context, accountID string, status deposit.Status, limit, offset int) ([]deposit.Record, error)
}

func (s stubDepositStore) Create(ctx context.Context, tx store.Execer, rec deposit.Record) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, rec)
}

func (s stubDepositStore) Update(ctx context.Context, tx store.Execer, rec deposit.Record, from deposit.Status) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, rec, from)
}

func (s stubDepositStore) GetByID(ctx context.Context, id string) (deposit.Record, error) {
	return s.getByIDFn(ctx, id)
}

func (s stubDepositStore) GetForUpdate(ctx context.Context, tx store.Getter, id string) (deposit.Record, error) {
	return s.getForUpdateFn(ctx, tx, id)
}

func (s stubDepositStore) ListByAccount(ctx context.Context, accountID string, status deposit.Status, limit, offset int) ([]deposit.Record, error) {
	return s.listByAccountFn(ctx, accountID, status, limit, offset)
}

type stubWithdrawalStore struct {
	createFn        func(ctx context.Context, tx store.Execer, rec withdrawal.Record) error
	updateFn        func(ctx context.Context, tx store.Execer, rec withdrawal.Record, from withdrawal.Status) (int64, error)
	getByIDFn       func(ctx context.Context, id string) (withdrawal.Record, error)
	getForUpdateFn  func(ctx context.Context, tx store.Getter, id string) (withdrawal.Record, error)
	listByAccountFn func(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) ([]withdrawal.Record, error)
}

func (s stubWithdrawalStore) Create(ctx context.Context, tx store.Execer, rec withdrawal.Record) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, rec)
}

func (s stubWithdrawalStore) Update(ctx context.Context, tx store.Execer, rec withdrawal.Record, from withdrawal.Status) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, rec, from)
}

func (s stubWithdrawalStore) GetByID(ctx context.Context, id string) (withdrawal.Record, error) {
	return s.getByIDFn(ctx, id)
}

func (s stubWithdrawalStore) GetForUpdate(ctx context.Context, tx store.Getter, id string) (withdrawal.Record, error) {
	return s.getForUpdateFn(ctx, tx, id)
}

func (s stubWithdrawalStore) ListByAccount(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) ([]withdrawal.Record, error) {
	return s.listByAccountFn(ctx, accountID, status, limit, offset)
}

type auditCall struct {
	actorID, action, entityType, entityID, data string
}

type stubAuditStore struct {
	mu    sync.Mutex
	calls []auditCall
	err   error
}

func (s *stubAuditStore) Log(_ context.Context, _ store.Execer, actorID, action, entityType, entityID, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, auditCall{actorID, action, entityType, entityID, data})
	return s.err
}

type stubHub struct {
	rates       []websocket.RateUpdate
	deposits    map[string][]websocket.DepositUpdate
	withdrawals map[string][]websocket.WithdrawalUpdate
}

func newStubHub() *stubHub {
	return &stubHub{
		deposits:    map[string][]websocket.DepositUpdate{},
		withdrawals: map[string][]websocket.WithdrawalUpdate{},
	}
}

func (s *stubHub) BroadcastRate(update websocket.RateUpdate) {
	s.rates = append(s.rates, update)
}

func (s *stubHub) BroadcastDeposit(accountID string, update websocket.DepositUpdate) {
	s.deposits[accountID] = append(s.deposits[accountID], update)
}

func (s *stubHub) BroadcastWithdrawal(accountID string, update websocket.WithdrawalUpdate) {
	s.withdrawals[accountID] = append(s.withdrawals[accountID], update)
}
