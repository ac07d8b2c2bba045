package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hbank/internal/auth"
	"hbank/internal/config"
	"hbank/internal/deposit"
	"hbank/internal/money"
	"hbank/internal/services"
	"hbank/internal/store"
	"hbank/internal/websocket"
	"hbank/internal/withdrawal"

	"github.com/go-kit/log"
	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubRates struct {
	publishFn    func(ctx context.Context, req services.PublishRateRequest) (money.Rate, error)
	latestFn     func(ctx context.Context) (money.Rate, error)
	bySequenceFn func(ctx context.Context, sequenceNumber string) (money.Rate, error)
	historyFn    func(ctx context.Context, limit, offset int) ([]money.Rate, error)
}

func (s stubRates) Publish(ctx context.Context, req services.PublishRateRequest) (money.Rate, error) {
	return s.publishFn(ctx, req)
}

func (s stubRates) Latest(ctx context.Context) (money.Rate, error) {
	return s.latestFn(ctx)
}

func (s stubRates) BySequence(ctx context.Context, sequenceNumber string) (money.Rate, error) {
	return s.bySequenceFn(ctx, sequenceNumber)
}

func (s stubRates) History(ctx context.Context, limit, offset int) ([]money.Rate, error) {
	return s.historyFn(ctx, limit, offset)
}

type stubDeposits struct {
	createFn   func(ctx context.Context, req services.CreateDepositRequest) (deposit.Deposit, error)
	scheduleFn func(ctx context.Context, actorID, id, scheduleID string) (deposit.Deposit, error)
	executeFn  func(ctx context.Context, actorID, id, transactionID string) (deposit.Deposit, error)
	failFn     func(ctx context.Context, actorID, id, reason string) (deposit.Deposit, error)
	getFn      func(ctx context.Context, id string) (deposit.Deposit, error)
	listFn     func(ctx context.Context, accountID string, status deposit.Status, limit, offset int) ([]deposit.Deposit, error)
}

func (s stubDeposits) Create(ctx context.Context, req services.CreateDepositRequest) (deposit.Deposit, error) {
	return s.createFn(ctx, req)
}

func (s stubDeposits) Schedule(ctx context.Context, actorID, id, scheduleID string) (deposit.Deposit, error) {
	return s.scheduleFn(ctx, actorID, id, scheduleID)
}

func (s stubDeposits) Execute(ctx context.Context, actorID, id, transactionID string) (deposit.Deposit, error) {
	return s.executeFn(ctx, actorID, id, transactionID)
}

func (s stubDeposits) Fail(ctx context.Context, actorID, id, reason string) (deposit.Deposit, error) {
	return s.failFn(ctx, actorID, id, reason)
}

func (s stubDeposits) Get(ctx context.Context, id string) (deposit.Deposit, error) {
	return s.getFn(ctx, id)
}

func (s stubDeposits) ListByAccount(ctx context.Context, accountID string, status deposit.Status, limit, offset int) ([]deposit.Deposit, error) {
	return s.listFn(ctx, accountID, status, limit, offset)
}

type stubWithdrawals struct {
	createFn   func(ctx context.Context, req services.CreateWithdrawalRequest) (withdrawal.Withdrawal, error)
	scheduleFn func(ctx context.Context, actorID, id, scheduleID string) (withdrawal.Withdrawal, error)
	executeFn  func(ctx context.Context, actorID, id, transactionID string) (withdrawal.Withdrawal, error)
	failFn     func(ctx context.Context, actorID, id, reason string) (withdrawal.Withdrawal, error)
	getFn      func(ctx context.Context, id string) (withdrawal.Withdrawal, error)
	listFn     func(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) ([]withdrawal.Withdrawal, error)
}

func (s stubWithdrawals) Create(ctx context.Context, req services.CreateWithdrawalRequest) (withdrawal.Withdrawal, error) {
	return s.createFn(ctx, req)
}

func (s stubWithdrawals) Schedule(ctx context.Context, actorID, id, scheduleID string) (withdrawal.Withdrawal, error) {
	return s.scheduleFn(ctx, actorID, id, scheduleID)
}

func (s stubWithdrawals) Execute(ctx context.Context, actorID, id, transactionID string) (withdrawal.Withdrawal, error) {
	return s.executeFn(ctx, actorID, id, transactionID)
}

func (s stubWithdrawals) Fail(ctx context.Context, actorID, id, reason string) (withdrawal.Withdrawal, error) {
	return s.failFn(ctx, actorID, id, reason)
}

func (s stubWithdrawals) Get(ctx context.Context, id string) (withdrawal.Withdrawal, error) {
	return s.getFn(ctx, id)
}

func (s stubWithdrawals) ListByAccount(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) ([]withdrawal.Withdrawal, error) {
	return s.listFn(ctx, accountID, status, limit, offset)
}

type stubOperatorStore struct {
	getByUsernameFn func(ctx context.Context, username string) (store.Operator, error)
	isOperatorFn    func(ctx context.Context, id string) (bool, bool, error)
	hasRoleFn       func(ctx context.Context, id, role string) (bool, error)
}

func (s stubOperatorStore) GetByUsername(ctx context.Context, username string) (store.Operator, error) {
	return s.getByUsernameFn(ctx, username)
}

func (s stubOperatorStore) IsOperator(ctx context.Context, id string) (bool, bool, error) {
	if s.isOperatorFn == nil {
		return true, false, nil
	}
	return s.isOperatorFn(ctx, id)
}

func (s stubOperatorStore) HasRole(ctx context.Context, id, role string) (bool, error) {
	if s.hasRoleFn == nil {
		return true, nil
	}
	return s.hasRoleFn(ctx, id, role)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, entityType string, limit, offset int) ([]store.AuditEntry, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, entityType string, limit, offset int) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, entityType, limit, offset)
}

type testDeps struct {
	rates       stubRates
	deposits    stubDeposits
	withdrawals stubWithdrawals
	operators   stubOperatorStore
	audit       stubAuditStore
	txRunner    fakeTxRunner
}

func newTestHandler(deps testDeps) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: []string{"*"},
		RateValidity:   5 * time.Minute,
	}
	return New(cfg, log.NewNopLogger(), deps.txRunner, deps.rates, deps.deposits, deps.withdrawals, deps.operators, deps.audit, websocket.NewHub())
}

// serve sends a request through the full router. A non-empty operatorID is
// sent as a bearer token.
func serve(t *testing.T, h *Handler, method, path, body, operatorID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if operatorID != "" {
		token, err := auth.GenerateToken("secret", operatorID, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func freshRate(t *testing.T) money.Rate {
	t.Helper()
	rate, err := money.NewRate(1.005, "seq-1", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rate
}

func pendingDeposit(t *testing.T) deposit.Deposit {
	t.Helper()
	d, err := deposit.Create("0.0.12345", 100, freshRate(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func pendingWithdrawal(t *testing.T) withdrawal.Withdrawal {
	t.Helper()
	wd, err := withdrawal.Create("0.0.12345", 50, freshRate(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return wd
}
