package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hbank/internal/auth"
	"hbank/internal/store"
	"hbank/internal/validator"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

type fakeOperators struct {
	exists    bool
	createErr error
	created   struct {
		id, username, hash string
		super              bool
	}
	roles []string
}

func (f *fakeOperators) HasAnyOperator(ctx context.Context) (bool, error) {
	return f.exists, nil
}

func (f *fakeOperators) Create(ctx context.Context, tx store.Execer, id, username, passwordHash string, isSuper bool) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created.id = id
	f.created.username = username
	f.created.hash = passwordHash
	f.created.super = isSuper
	return nil
}

func (f *fakeOperators) GrantRole(ctx context.Context, tx store.Execer, id, role string) error {
	f.roles = append(f.roles, role)
	return nil
}

type fakeAudit struct {
	actions []string
	data    string
}

func (f *fakeAudit) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	f.actions = append(f.actions, action)
	f.data = data
	return nil
}

func TestCreateOperatorFirstIsSuper(t *testing.T) {
	ops := &fakeOperators{}
	audit := &fakeAudit{}
	id, err := createOperator(context.Background(), fakeTxRunner{}, ops, audit, request{
		Username: " treasury ",
		Password: "correct-horse",
		Roles:    []string{"publish_rates", "PUBLISH_RATES", " settle_deposits", "settle_withdrawals"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" || ops.created.id != id {
		t.Fatalf("unexpected id %q (stored %q)", id, ops.created.id)
	}
	if ops.created.username != "treasury" {
		t.Fatalf("expected trimmed username, got %q", ops.created.username)
	}
	if !ops.created.super {
		t.Fatalf("expected first operator to be super")
	}
	if !auth.CheckPassword(ops.created.hash, "correct-horse") {
		t.Fatalf("expected stored hash to match password")
	}
	if strings.Join(ops.roles, ",") != "publish_rates,settle_deposits,settle_withdrawals" {
		t.Fatalf("unexpected roles: %v", ops.roles)
	}
	if len(audit.actions) != 1 || audit.actions[0] != "operator.create" {
		t.Fatalf("unexpected audit actions: %v", audit.actions)
	}
	if strings.Contains(audit.data, "correct-horse") {
		t.Fatalf("audit data must not contain the password")
	}
}

func TestCreateOperatorLaterIsNotSuper(t *testing.T) {
	ops := &fakeOperators{exists: true}
	_, err := createOperator(context.Background(), fakeTxRunner{}, ops, &fakeAudit{}, request{
		Username: "settler",
		Password: "correct-horse",
		Roles:    []string{"settle_deposits"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ops.created.super {
		t.Fatalf("expected regular operator")
	}
}

func TestCreateOperatorValidation(t *testing.T) {
	cases := []struct {
		name string
		req  request
		want error
	}{
		{"username", request{Username: "a!", Password: "correct-horse"}, validator.ErrInvalidUsername},
		{"password", request{Username: "treasury", Password: "short"}, validator.ErrInvalidPassword},
		{"role", request{Username: "treasury", Password: "correct-horse", Roles: []string{"root"}}, errUnknownRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ops := &fakeOperators{}
			_, err := createOperator(context.Background(), fakeTxRunner{}, ops, &fakeAudit{}, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if ops.created.id != "" {
				t.Fatalf("expected nothing stored")
			}
		})
	}
}

func TestCreateOperatorStoreError(t *testing.T) {
	boom := errors.New("boom")
	audit := &fakeAudit{}
	_, err := createOperator(context.Background(), fakeTxRunner{}, &fakeOperators{createErr: boom}, audit, request{
		Username: "treasury",
		Password: "correct-horse",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(audit.actions) != 0 {
		t.Fatalf("expected no audit entry")
	}
}
