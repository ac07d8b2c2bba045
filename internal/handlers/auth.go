package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hbank/internal/auth"
	"hbank/internal/models"
	"hbank/internal/validator"

	"github.com/go-kit/log/level"
	"github.com/jmoiron/sqlx"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if validator.ValidateUsername(req.Username) != nil || validator.ValidatePassword(req.Password) != nil {
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	operator, err := h.operators.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		level.Error(h.logger).Log("msg", "operator lookup failed", "err", err)
		respondError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	if !auth.CheckPassword(operator.PasswordHash, req.Password) {
		level.Warn(h.logger).Log("msg", "rejected operator login", "username", req.Username, "ip", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		data, _ := json.Marshal(map[string]string{
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		})
		return h.audit.Log(r.Context(), tx, operator.ID, "operator.login", "operator", operator.ID, string(data))
	}); err != nil {
		level.Error(h.logger).Log("msg", "login audit failed", "err", err)
		respondError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, operator.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	respondJSON(w, http.StatusOK, models.Token{
		Token:     token,
		ExpiresAt: time.Now().Add(h.cfg.TokenTTL).UTC(),
	})
}
