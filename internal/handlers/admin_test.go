package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"hbank/internal/store"
)

func TestListAuditLogs(t *testing.T) {
	h := newTestHandler(testDeps{audit: stubAuditStore{
		listFn: func(_ context.Context, entityType string, limit, offset int) ([]store.AuditEntry, error) {
			if entityType != "deposit" || limit != defaultPageSize {
				t.Fatalf("unexpected args: %s %d", entityType, limit)
			}
			return []store.AuditEntry{{ID: "log-1", Action: "deposit.schedule"}}, nil
		},
	}})
	rr := serve(t, h, http.MethodGet, "/admin/audit?entity=deposit", "", "op-1")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "deposit.schedule") {
		t.Fatalf("unexpected response: %d %s", rr.Code, rr.Body.String())
	}
}

func TestListAuditLogsRequiresToken(t *testing.T) {
	h := newTestHandler(testDeps{})
	if rr := serve(t, h, http.MethodGet, "/admin/audit", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWSRejectsBadAccount(t *testing.T) {
	h := newTestHandler(testDeps{})
	if rr := serve(t, h, http.MethodGet, "/ws?account=nope", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
