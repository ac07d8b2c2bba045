package store

import (
	"context"
	"fmt"
	"time"

	"hbank/internal/withdrawal"
)

type WithdrawalStore struct {
	db DB
}

func NewWithdrawalStore(db DB) *WithdrawalStore {
	return &WithdrawalStore{db: db}
}

type withdrawalRow struct {
	ID                string     `db:"id"`
	UserAccountID     string     `db:"user_account_id"`
	RequestedAmount   string     `db:"requested_amount"`
	RequestedCurrency string     `db:"requested_currency"`
	RateValue         string     `db:"rate_value"`
	RateSequence      string     `db:"rate_sequence"`
	RatePublishedAt   time.Time  `db:"rate_published_at"`
	RateValidUntil    time.Time  `db:"rate_valid_until"`
	Status            string     `db:"status"`
	ScheduleID        *string    `db:"schedule_id"`
	TransactionID     *string    `db:"transaction_id"`
	Memo              *string    `db:"memo"`
	CreatedAt         time.Time  `db:"created_at"`
	ExecutedAt        *time.Time `db:"executed_at"`
}

const withdrawalColumns = `id, user_account_id, requested_amount, requested_currency, rate_value, rate_sequence,
		rate_published_at, rate_valid_until, status, schedule_id, transaction_id, memo, created_at, executed_at`

func (r withdrawalRow) record() (withdrawal.Record, error) {
	requested, rate, err := pricedColumns(r.RequestedAmount, r.RequestedCurrency, r.RateValue, r.RateSequence, r.RatePublishedAt, r.RateValidUntil)
	if err != nil {
		return withdrawal.Record{}, fmt.Errorf("withdrawal %s: %w", r.ID, err)
	}
	return withdrawal.Record{
		ID:              r.ID,
		UserAccountID:   r.UserAccountID,
		RequestedAmount: requested,
		Rate:            rate,
		Status:          withdrawal.Status(r.Status),
		ScheduleID:      derefStringPtr(r.ScheduleID),
		CreatedAt:       r.CreatedAt,
		ExecutedAt:      r.ExecutedAt,
		TransactionID:   derefStringPtr(r.TransactionID),
		Memo:            derefStringPtr(r.Memo),
	}, nil
}

func (s *WithdrawalStore) Create(ctx context.Context, tx Execer, rec withdrawal.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO withdrawals (`+withdrawalColumns+`, requested_tiny_units)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		rec.ID, rec.UserAccountID, formatFloat(rec.RequestedAmount.Amount()), string(rec.RequestedAmount.Currency()),
		formatFloat(rec.Rate.Value()), rec.Rate.SequenceNumber(), rec.Rate.PublishedAt().UTC(), rec.Rate.ValidUntil().UTC(),
		string(rec.Status), nullableString(rec.ScheduleID), nullableString(rec.TransactionID), nullableString(rec.Memo),
		rec.CreatedAt.UTC(), rec.ExecutedAt, rec.RequestedAmount.ToTinyUnits(),
	)
	return err
}

// Update writes rec only if the stored status is still from.
func (s *WithdrawalStore) Update(ctx context.Context, tx Execer, rec withdrawal.Record, from withdrawal.Status) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = $1, schedule_id = $2, transaction_id = $3, memo = $4, executed_at = $5, updated_at = NOW()
		WHERE id = $6 AND status = $7
	`, string(rec.Status), nullableString(rec.ScheduleID), nullableString(rec.TransactionID),
		nullableString(rec.Memo), rec.ExecutedAt, rec.ID, string(from))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *WithdrawalStore) GetByID(ctx context.Context, id string) (withdrawal.Record, error) {
	var row withdrawalRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id); err != nil {
		return withdrawal.Record{}, err
	}
	return row.record()
}

func (s *WithdrawalStore) GetForUpdate(ctx context.Context, tx Getter, id string) (withdrawal.Record, error) {
	var row withdrawalRow
	if err := tx.GetContext(ctx, &row, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id); err != nil {
		return withdrawal.Record{}, err
	}
	return row.record()
}

func (s *WithdrawalStore) ListByAccount(ctx context.Context, accountID string, status withdrawal.Status, limit, offset int) ([]withdrawal.Record, error) {
	var rows []withdrawalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE user_account_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, accountID, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	records := make([]withdrawal.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
