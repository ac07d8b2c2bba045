package store

import (
	"context"
	"fmt"
	"time"

	"hbank/internal/deposit"
	"hbank/internal/money"

	"github.com/shopspring/decimal"
)

type DepositStore struct {
	db DB
}

func NewDepositStore(db DB) *DepositStore {
	return &DepositStore{db: db}
}

type depositRow struct {
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

const depositColumns = `id, user_account_id, requested_amount, requested_currency, rate_value, rate_sequence,
		rate_published_at, rate_valid_until, status, schedule_id, transaction_id, memo, created_at, executed_at`

func (r depositRow) record() (deposit.Record, error) {
	requested, rate, err := pricedColumns(r.RequestedAmount, r.RequestedCurrency, r.RateValue, r.RateSequence, r.RatePublishedAt, r.RateValidUntil)
	if err != nil {
		return deposit.Record{}, fmt.Errorf("deposit %s: %w", r.ID, err)
	}
	return deposit.Record{
		ID:              r.ID,
		UserAccountID:   r.UserAccountID,
		RequestedAmount: requested,
		Rate:            rate,
		Status:          deposit.Status(r.Status),
		ScheduleID:      derefStringPtr(r.ScheduleID),
		CreatedAt:       r.CreatedAt,
		ExecutedAt:      r.ExecutedAt,
		TransactionID:   derefStringPtr(r.TransactionID),
		Memo:            derefStringPtr(r.Memo),
	}, nil
}

// pricedColumns decodes the amount and captured rate shared by deposit and
// withdrawal rows.
func pricedColumns(amount, currency, rateValue, sequence string, publishedAt, validUntil time.Time) (money.Money, money.Rate, error) {
	c, err := money.ParseCurrency(currency)
	if err != nil {
		return money.Money{}, money.Rate{}, err
	}
	value, err := parseFloat(amount)
	if err != nil {
		return money.Money{}, money.Rate{}, fmt.Errorf("amount: %w", err)
	}
	requested, err := money.New(value, c)
	if err != nil {
		return money.Money{}, money.Rate{}, err
	}
	rv, err := parseFloat(rateValue)
	if err != nil {
		return money.Money{}, money.Rate{}, fmt.Errorf("rate: %w", err)
	}
	rate, err := money.NewRateWithWindow(rv, sequence, publishedAt, validUntil)
	if err != nil {
		return money.Money{}, money.Rate{}, err
	}
	return requested, rate, nil
}

func (s *DepositStore) Create(ctx context.Context, tx Execer, rec deposit.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO deposits (`+depositColumns+`, requested_tiny_units)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		rec.ID, rec.UserAccountID, formatFloat(rec.RequestedAmount.Amount()), string(rec.RequestedAmount.Currency()),
		formatFloat(rec.Rate.Value()), rec.Rate.SequenceNumber(), rec.Rate.PublishedAt().UTC(), rec.Rate.ValidUntil().UTC(),
		string(rec.Status), nullableString(rec.ScheduleID), nullableString(rec.TransactionID), nullableString(rec.Memo),
		rec.CreatedAt.UTC(), rec.ExecutedAt, rec.RequestedAmount.ToTinyUnits(),
	)
	return err
}

// Update writes the mutable columns of rec only if the stored status is still
// from. It returns the number of rows changed.
func (s *DepositStore) Update(ctx context.Context, tx Execer, rec deposit.Record, from deposit.Status) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE deposits
		SET status = $1, schedule_id = $2, transaction_id = $3, memo = $4, executed_at = $5, updated_at = NOW()
		WHERE id = $6 AND status = $7
	`, string(rec.Status), nullableString(rec.ScheduleID), nullableString(rec.TransactionID),
		nullableString(rec.Memo), rec.ExecutedAt, rec.ID, string(from))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *DepositStore) GetByID(ctx context.Context, id string) (deposit.Record, error) {
	var row depositRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+depositColumns+` FROM deposits WHERE id = $1`, id); err != nil {
		return deposit.Record{}, err
	}
	return row.record()
}

func (s *DepositStore) GetForUpdate(ctx context.Context, tx Getter, id string) (deposit.Record, error) {
	var row depositRow
	if err := tx.GetContext(ctx, &row, `SELECT `+depositColumns+` FROM deposits WHERE id = $1 FOR UPDATE`, id); err != nil {
		return deposit.Record{}, err
	}
	return row.record()
}

// ListByAccount returns an account's deposits, newest first. An empty status
// matches every status.
func (s *DepositStore) ListByAccount(ctx context.Context, accountID string, status deposit.Status, limit, offset int) ([]deposit.Record, error) {
	var rows []depositRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+depositColumns+`
		FROM deposits
		WHERE user_account_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, accountID, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	records := make([]deposit.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func formatFloat(value float64) string {
	return decimal.NewFromFloat(value).String()
}

func parseFloat(raw string) (float64, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	f, _ := value.Float64()
	return f, nil
}
