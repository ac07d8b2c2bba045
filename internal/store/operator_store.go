package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Operator roles checked by the HTTP layer.
const (
	RolePublishRates      = "publish_rates"
	RoleSettleDeposits    = "settle_deposits"
	RoleSettleWithdrawals = "settle_withdrawals"
)

type OperatorStore struct {
	db DB
}

func NewOperatorStore(db DB) *OperatorStore {
	return &OperatorStore{db: db}
}

type Operator struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	IsSuper      bool      `db:"is_super"`
	CreatedAt    time.Time `db:"created_at"`
}

func (s *OperatorStore) GetByUsername(ctx context.Context, username string) (Operator, error) {
	var op Operator
	err := s.db.GetContext(ctx, &op, `
		SELECT id, username, password_hash, is_super, created_at
		FROM operators
		WHERE username = $1
	`, username)
	return op, err
}

// IsOperator reports whether id belongs to an operator and whether that
// operator is a super operator.
func (s *OperatorStore) IsOperator(ctx context.Context, id string) (bool, bool, error) {
	var isSuper bool
	err := s.db.GetContext(ctx, &isSuper, `
		SELECT is_super
		FROM operators
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, isSuper, nil
}

func (s *OperatorStore) HasRole(ctx context.Context, id, role string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM operator_roles
		WHERE operator_id = $1 AND role = $2
	`, id, role)
	return count > 0, err
}

func (s *OperatorStore) Create(ctx context.Context, tx Execer, id, username, passwordHash string, isSuper bool) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO operators (id, username, password_hash, is_super)
		VALUES ($1, $2, $3, $4)
	`, id, username, passwordHash, isSuper)
	return err
}

func (s *OperatorStore) GrantRole(ctx context.Context, tx Execer, id, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO operator_roles (operator_id, role)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, id, role)
	return err
}

func (s *OperatorStore) HasAnyOperator(ctx context.Context) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM operators`)
	return count > 0, err
}
