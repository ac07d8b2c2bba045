package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hbank/internal/db"
	"hbank/internal/money"
	"hbank/internal/store"
	"hbank/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RateService struct {
	txRunner db.TxRunner
	store    RateStore
	audit    AuditStore
	hub      RateHub
	validity time.Duration
	now      clock
}

func NewRateService(txRunner db.TxRunner, rateStore RateStore, auditStore AuditStore, hub RateHub, validity time.Duration) *RateService {
	if validity <= 0 {
		validity = money.DefaultRateValidity
	}
	return &RateService{
		txRunner: txRunner,
		store:    rateStore,
		audit:    auditStore,
		hub:      hub,
		validity: validity,
		now:      time.Now,
	}
}

// PublishRateRequest carries an operator-supplied rate. A zero PublishedAt
// means now and a zero ValidUntil means PublishedAt plus the configured
// validity window. An empty SequenceNumber takes the generated rate id.
type PublishRateRequest struct {
	OperatorID     string
	Value          float64
	SequenceNumber string
	PublishedAt    time.Time
	ValidUntil     time.Time
}

func (s *RateService) Publish(ctx context.Context, req PublishRateRequest) (money.Rate, error) {
	publishedAt := req.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = s.now()
	}
	validUntil := req.ValidUntil
	if validUntil.IsZero() {
		validUntil = publishedAt.Add(s.validity)
	}
	id := uuid.NewString()
	sequence := req.SequenceNumber
	if sequence == "" {
		sequence = id
	}
	rate, err := money.NewRateWithWindow(req.Value, sequence, publishedAt, validUntil)
	if err != nil {
		return money.Rate{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.Publish(ctx, tx, store.RateInput{ID: id, Rate: rate, CreatedBy: req.OperatorID}); err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateRate, rate.SequenceNumber())
			}
			return err
		}
		data, _ := json.Marshal(rate)
		return s.audit.Log(ctx, tx, req.OperatorID, "rate.publish", "rate", id, string(data))
	})
	if err != nil {
		return money.Rate{}, err
	}
	s.hub.BroadcastRate(websocket.RateUpdate{
		Value:          rate.Value(),
		SequenceNumber: rate.SequenceNumber(),
		PublishedAt:    rate.PublishedAt(),
		ValidUntil:     rate.ValidUntil(),
	})
	return rate, nil
}

// Latest returns the active rate even when it has expired; callers decide
// whether an expired rate is usable.
func (s *RateService) Latest(ctx context.Context) (money.Rate, error) {
	row, err := s.store.Latest(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return money.Rate{}, ErrRateUnavailable
		}
		return money.Rate{}, fmt.Errorf("load latest rate: %w", err)
	}
	return row.Rate()
}

// BySequence looks up any rate ever published, active or retired.
func (s *RateService) BySequence(ctx context.Context, sequenceNumber string) (money.Rate, error) {
	row, err := s.store.GetBySequence(ctx, sequenceNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return money.Rate{}, fmt.Errorf("%w: %s", ErrUnknownRate, sequenceNumber)
		}
		return money.Rate{}, fmt.Errorf("load rate %s: %w", sequenceNumber, err)
	}
	return row.Rate()
}

func (s *RateService) History(ctx context.Context, limit, offset int) ([]money.Rate, error) {
	rows, err := s.store.History(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("load rate history: %w", err)
	}
	rates := make([]money.Rate, 0, len(rows))
	for _, row := range rows {
		rate, err := row.Rate()
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}
