package middleware

import (
	"context"
	"net/http"
)

type OperatorStore interface {
	IsOperator(ctx context.Context, id string) (bool, bool, error)
	HasRole(ctx context.Context, id, role string) (bool, error)
}

// RequireOperator lets through operators holding role. Super operators hold
// every role, and an empty role only requires an operator.
func RequireOperator(operators OperatorStore, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operatorID, ok := OperatorIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			isOperator, isSuper, err := operators.IsOperator(r.Context(), operatorID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "operator_lookup_failed")
				return
			}
			if !isOperator {
				writeError(w, http.StatusForbidden, "operator_required")
				return
			}
			if isSuper || role == "" {
				next.ServeHTTP(w, r)
				return
			}
			hasRole, err := operators.HasRole(r.Context(), operatorID, role)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "role_lookup_failed")
				return
			}
			if !hasRole {
				writeError(w, http.StatusForbidden, "missing_role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
