package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestOperatorStoreGetByUsername(t *testing.T) {
	ctx := context.Background()
	store := NewOperatorStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM operators") || args[0] != "treasury" {
				t.Fatalf("unexpected query: %s %#v", query, args)
			}
			*dest.(*Operator) = Operator{ID: "op-1", Username: "treasury", PasswordHash: "hash"}
			return nil
		},
	})
	op, err := store.GetByUsername(ctx, "treasury")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.ID != "op-1" || op.PasswordHash != "hash" {
		t.Fatalf("unexpected operator: %#v", op)
	}
}

func TestOperatorStoreIsOperatorNoRows(t *testing.T) {
	ctx := context.Background()
	store := NewOperatorStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			return sql.ErrNoRows
		},
	})
	isOperator, isSuper, err := store.IsOperator(ctx, "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isOperator || isSuper {
		t.Fatalf("expected non-operator result")
	}
}

func TestOperatorStoreIsOperator(t *testing.T) {
	ctx := context.Background()
	store := NewOperatorStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			*dest.(*bool) = true
			return nil
		},
	})
	isOperator, isSuper, err := store.IsOperator(ctx, "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isOperator || !isSuper {
		t.Fatalf("expected operator/super true")
	}
}

func TestOperatorStoreHasRole(t *testing.T) {
	ctx := context.Background()
	store := NewOperatorStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM operator_roles") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[1] != RolePublishRates {
				t.Fatalf("unexpected role: %#v", args[1])
			}
			*dest.(*int) = 1
			return nil
		},
	})
	hasRole, err := store.HasRole(ctx, "op-1", RolePublishRates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasRole {
		t.Fatalf("expected role to be granted")
	}
}

func TestOperatorStoreCreateAndGrant(t *testing.T) {
	ctx := context.Background()
	var queries []string
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			queries = append(queries, query)
			return stubResult{rows: 1}, nil
		},
	}
	store := NewOperatorStore(stubDB{})
	if err := store.Create(ctx, execer, "op-1", "treasury", "hash", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.GrantRole(ctx, execer, "op-1", RoleSettleDeposits); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 || !strings.Contains(queries[0], "INSERT INTO operators") || !strings.Contains(queries[1], "ON CONFLICT DO NOTHING") {
		t.Fatalf("unexpected queries: %v", queries)
	}
}

func TestOperatorStoreHasAnyOperator(t *testing.T) {
	ctx := context.Background()
	store := NewOperatorStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			*dest.(*int) = 0
			return nil
		},
	})
	hasAny, err := store.HasAnyOperator(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hasAny {
		t.Fatalf("expected no operators")
	}
}
