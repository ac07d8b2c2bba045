package handlers

import (
	"net/http"

	"hbank/internal/models"
	"hbank/internal/validator"
	"hbank/internal/websocket"
)

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	entries, err := h.audit.List(r.Context(), r.URL.Query().Get("entity"), page.Limit, page.Offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.AuditLog{Entries: entries, Page: page})
}

// WS streams rate updates, plus deposit and withdrawal updates when ?account=
// is given.
func (h *Handler) WS(w http.ResponseWriter, r *http.Request) {
	var accountID string
	if raw := r.URL.Query().Get("account"); raw != "" {
		account, err := validator.ParseAccountID(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_account")
			return
		}
		accountID = account.String()
	}
	websocket.ServeWS(w, r, h.hub, accountID)
}
