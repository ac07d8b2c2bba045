package store

import (
	"context"
	"fmt"
	"time"

	"hbank/internal/money"

	"github.com/shopspring/decimal"
)

type RateStore struct {
	db DB
}

func NewRateStore(db DB) *RateStore {
	return &RateStore{db: db}
}

type RateRow struct {
	ID             string    `db:"id"`
	Value          string    `db:"value"`
	SequenceNumber string    `db:"sequence_number"`
	PublishedAt    time.Time `db:"published_at"`
	ValidUntil     time.Time `db:"valid_until"`
	IsActive       bool      `db:"is_active"`
	CreatedBy      *string   `db:"created_by"`
	CreatedAt      time.Time `db:"created_at"`
}

// Rate converts the row back into a value object. NUMERIC values are written
// from the float's shortest representation so the float comes back unchanged.
func (r RateRow) Rate() (money.Rate, error) {
	value, err := decimal.NewFromString(r.Value)
	if err != nil {
		return money.Rate{}, fmt.Errorf("rate %s: %w", r.ID, err)
	}
	f, _ := value.Float64()
	return money.NewRateWithWindow(f, r.SequenceNumber, r.PublishedAt, r.ValidUntil)
}

type RateInput struct {
	ID        string
	Rate      money.Rate
	CreatedBy string
}

const rateColumns = `id, value, sequence_number, published_at, valid_until, is_active, created_by, created_at`

// Publish retires the active rate and stores input as the new active one.
// Only one rate may be active at a time.
func (s *RateStore) Publish(ctx context.Context, tx Tx, input RateInput) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE rates
		SET is_active = FALSE, deactivated_at = NOW()
		WHERE is_active = TRUE
	`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO rates (id, value, sequence_number, published_at, valid_until, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
	`, input.ID, decimal.NewFromFloat(input.Rate.Value()).String(), input.Rate.SequenceNumber(),
		input.Rate.PublishedAt().UTC(), input.Rate.ValidUntil().UTC(), nullableString(input.CreatedBy))
	return err
}

func (s *RateStore) Latest(ctx context.Context) (RateRow, error) {
	var row RateRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+rateColumns+`
		FROM rates
		WHERE is_active = TRUE
		ORDER BY published_at DESC
		LIMIT 1
	`)
	return row, err
}

func (s *RateStore) GetBySequence(ctx context.Context, sequenceNumber string) (RateRow, error) {
	var row RateRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+rateColumns+`
		FROM rates
		WHERE sequence_number = $1
	`, sequenceNumber)
	return row, err
}

func (s *RateStore) History(ctx context.Context, limit, offset int) ([]RateRow, error) {
	var rows []RateRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+rateColumns+`
		FROM rates
		ORDER BY published_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefStringPtr(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
