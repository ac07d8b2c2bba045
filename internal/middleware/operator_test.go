package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubOperatorStore struct {
	isOperatorFn func(ctx context.Context, id string) (bool, bool, error)
	hasRoleFn    func(ctx context.Context, id, role string) (bool, error)
}

func (s stubOperatorStore) IsOperator(ctx context.Context, id string) (bool, bool, error) {
	return s.isOperatorFn(ctx, id)
}

func (s stubOperatorStore) HasRole(ctx context.Context, id, role string) (bool, error) {
	return s.hasRoleFn(ctx, id, role)
}

func serveAsOperator(handler http.Handler, operatorID string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if operatorID != "" {
		req = req.WithContext(WithOperatorID(req.Context(), operatorID))
	}
	handler.ServeHTTP(rr, req)
	return rr
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireOperatorMissingOperator(t *testing.T) {
	handler := RequireOperator(stubOperatorStore{
		isOperatorFn: func(context.Context, string) (bool, bool, error) {
			t.Fatalf("unexpected call")
			return false, false, nil
		},
	}, "publish_rates")(okHandler())
	if rr := serveAsOperator(handler, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireOperatorNotOperator(t *testing.T) {
	handler := RequireOperator(stubOperatorStore{
		isOperatorFn: func(context.Context, string) (bool, bool, error) {
			return false, false, nil
		},
	}, "publish_rates")(okHandler())
	if rr := serveAsOperator(handler, "op-1"); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireOperatorSuper(t *testing.T) {
	handler := RequireOperator(stubOperatorStore{
		isOperatorFn: func(context.Context, string) (bool, bool, error) {
			return true, true, nil
		},
		hasRoleFn: func(context.Context, string, string) (bool, error) {
			t.Fatalf("super operators skip the role check")
			return false, nil
		},
	}, "publish_rates")(okHandler())
	if rr := serveAsOperator(handler, "op-1"); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireOperatorRole(t *testing.T) {
	for _, tc := range []struct {
		name    string
		granted bool
		err     error
		want    int
	}{
		{name: "granted", granted: true, want: http.StatusOK},
		{name: "missing", granted: false, want: http.StatusForbidden},
		{name: "lookup error", err: errors.New("db down"), want: http.StatusInternalServerError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequireOperator(stubOperatorStore{
				isOperatorFn: func(context.Context, string) (bool, bool, error) {
					return true, false, nil
				},
				hasRoleFn: func(_ context.Context, id, role string) (bool, error) {
					if id != "op-1" || role != "settle_deposits" {
						t.Fatalf("unexpected args: %s %s", id, role)
					}
					return tc.granted, tc.err
				},
			}, "settle_deposits")(okHandler())
			if rr := serveAsOperator(handler, "op-1"); rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestRequireOperatorNoRole(t *testing.T) {
	handler := RequireOperator(stubOperatorStore{
		isOperatorFn: func(context.Context, string) (bool, bool, error) {
			return true, false, nil
		},
	}, "")(okHandler())
	if rr := serveAsOperator(handler, "op-1"); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
