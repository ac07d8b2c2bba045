package services

import (
	"context"
	"time"

	"hbank/internal/deposit"
	"hbank/internal/money"
	"hbank/internal/withdrawal"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type loggingRates struct {
	logger log.Logger
	next   Rates
}

// NewLoggingRateService wraps a Rates with one log line per call.
func NewLoggingRateService(logger log.Logger, next Rates) Rates {
	return &loggingRates{logger: logger, next: next}
}

func (s *loggingRates) Publish(ctx context.Context, req PublishRateRequest) (rate money.Rate, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "publish",
			"operator", req.OperatorID,
			"value", req.Value,
			"sequence", req.SequenceNumber,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Publish(ctx, req)
}

func (s *loggingRates) Latest(ctx context.Context) (rate money.Rate, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "latest",
			"sequence", rate.SequenceNumber(),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Latest(ctx)
}

func (s *loggingRates) BySequence(ctx context.Context, sequenceNumber string) (rate money.Rate, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "by_sequence",
			"sequence", sequenceNumber,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.BySequence(ctx, sequenceNumber)
}

func (s *loggingRates) History(ctx context.Context, limit, offset int) (rates []money.Rate, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "history",
			"limit", limit,
			"offset", offset,
			"count", len(rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.History(ctx, limit, offset)
}

type loggingDeposits struct {
	logger log.Logger
	next   Deposits
}

// NewLoggingDepositService wraps a Deposits with one log line per call.
func NewLoggingDepositService(logger log.Logger, next Deposits) Deposits {
	return &loggingDeposits{logger: logger, next: next}
}

func (s *loggingDeposits) Create(ctx context.Context, req CreateDepositRequest) (d deposit.Deposit, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "create",
			"account", req.AccountID,
			"amount", req.Amount,
			"quoted_sequence", req.QuotedSequence,
			"deposit", d.ID(),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Create(ctx, req)
}

func (s *loggingDeposits) Schedule(ctx context.Context, actorID, id, scheduleID string) (d deposit.Deposit, err error) {
	defer s.logTransition("schedule", actorID, id, time.Now(), &d, &err)
	return s.next.Schedule(ctx, actorID, id, scheduleID)
}

func (s *loggingDeposits) Execute(ctx context.Context, actorID, id, transactionID string) (d deposit.Deposit, err error) {
	defer s.logTransition("execute", actorID, id, time.Now(), &d, &err)
	return s.next.Execute(ctx, actorID, id, transactionID)
}

func (s *loggingDeposits) Fail(ctx context.Context, actorID, id, reason string) (d deposit.Deposit, err error) {
	defer s.logTransition("fail", actorID, id, time.Now(), &d, &err)
	return s.next.Fail(ctx, actorID, id, reason)
}

func (s *loggingDeposits) logTransition(method, actorID, id string, begin time.Time, d *deposit.Deposit, err *error) {
	level.Info(s.logger).Log(
		"method", method,
		"actor", actorID,
		"deposit", id,
		"status", d.Status(),
		"took", time.Since(begin),
		"err", *err,
	)
}

func (s *loggingDeposits) Get(ctx context.Context, id string) (d deposit.Deposit, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "get",
			"deposit", id,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Get(ctx, id)
}

func (s *loggingDeposits) ListByAccount(ctx context.Context, accountID string, status deposit.Status, limit, offset int) (deposits []deposit.Deposit, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "list_by_account",
			"account", accountID,
			"status", status,
			"count", len(deposits),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ListByAccount(ctx, accountID, status, limit, offset)
}

type loggingWithdrawals struct {
	logger log.Logger
	next   Withdrawals
}

// NewLoggingWithdrawalService wraps a Withdrawals with one log line per call.
func NewLoggingWithdrawalService(logger log.Logger, next Withdrawals) Withdrawals {
	return &loggingWithdrawals{logger: logger, next: next}
}

func (s *loggingWithdrawals) Create(ctx context.Context, req CreateWithdrawalRequest) (w withdrawal.Withdrawal, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "create",
			"account", req.AccountID,
			"amount", req.Amount,
			"quoted_sequence", req.QuotedSequence,
			"withdrawal", w.ID(),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Create(ctx, req)
}

func (s *loggingWithdrawals) Schedule(ctx context.Context, actorID, id, scheduleID string) (w withdrawal.Withdrawal, err error) {
	defer s.logTransition("schedule", actorID, id, time.Now(), &w, &err)
	return s.next.Schedule(ctx, actorID, id, scheduleID)
}

func (s *loggingWithdrawals) Execute(ctx context.Context, actorID, id, transactionID string) (w withdrawal.Withdrawal, err error) {
	defer s.logTransition("execute", actorID, id, time.Now(), &w, &err)
	return s.next.Execute(ctx, actorID, id, transactionID)
}

func (s *loggingWithdrawals) Fail(ctx context.Context, actorID, id, reason string) (w withdrawal.Withdrawal, err error) {
	defer s.logTransition("fail", actorID, id, time.Now(), &w, &err)
	return s.next.Fail(ctx, actorID, id, reason)
}

func (s *loggingWithdrawals) logTransition(method, actorID, id string, begin time.Time, w *withdrawal.Withdrawal, err *error) {
	level.Info(s.logger).Log(
		"method", method,
		"actor", actorID,
		"withdrawal", id,
		"status", w.Status(),
		"took", time.Since(begin),
		"err", *err,
	)
}

func (s *loggingWithdrawals) Get(ctx context.Context, id string) (w withdrawal.Withdrawal, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "get",
			"withdrawal", id,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Get(ctx, id)
}

func (s *loggingWithdrawals) ListByAccount(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) (withdrawals []withdrawal.Withdrawal, err error) {
	defer func(begin time.Time) {
		level.Info(s.logger).Log(
			"method", "list_by_account",
			"account", accountID,
			"status", status,
			"count", len(withdrawals),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ListByAccount(ctx, accountID, status, limit, offset)
}
