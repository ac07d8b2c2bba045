package handlers

import (
	"context"

	"hbank/internal/store"
)

type OperatorStore interface {
	GetByUsername(ctx context.Context, username string) (store.Operator, error)
	IsOperator(ctx context.Context, id string) (bool, bool, error)
	HasRole(ctx context.Context, id, role string) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, entityType string, limit, offset int) ([]store.AuditEntry, error)
}
