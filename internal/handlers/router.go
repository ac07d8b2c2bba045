package handlers

import (
	"net/http"

	"hbank/internal/config"
	"hbank/internal/db"
	"hbank/internal/middleware"
	"hbank/internal/models"
	"hbank/internal/services"
	"hbank/internal/store"
	"hbank/internal/validator"
	"hbank/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-kit/log"
	playground "github.com/go-playground/validator/v10"
)

type Handler struct {
	cfg         config.Config
	logger      log.Logger
	validate    *playground.Validate
	txRunner    db.TxRunner
	rates       services.Rates
	deposits    services.Deposits
	withdrawals services.Withdrawals
	operators   OperatorStore
	audit       AuditStore
	hub         *websocket.Hub
}

func New(cfg config.Config, logger log.Logger, txRunner db.TxRunner, rates services.Rates, deposits services.Deposits, withdrawals services.Withdrawals, operators OperatorStore, audit AuditStore, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:         cfg,
		logger:      logger,
		validate:    validator.New(),
		txRunner:    txRunner,
		rates:       rates,
		deposits:    deposits,
		withdrawals: withdrawals,
		operators:   operators,
		audit:       audit,
		hub:         hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Auth(h.cfg.JWTSecret)

	router.Post("/auth/login", h.Login)

	router.Route("/rates", func(r chi.Router) {
		r.Get("/latest", h.LatestRate)
		r.Get("/history", h.RateHistory)
		r.Get("/quote", h.Quote)
		r.Get("/{sequenceNumber}", h.RateBySequence)
		r.With(authenticated, middleware.RequireOperator(h.operators, store.RolePublishRates)).Post("/", h.PublishRate)
	})

	router.Route("/deposits", func(r chi.Router) {
		r.Post("/", h.CreateDeposit)
		r.Get("/{id}", h.GetDeposit)
		r.Group(func(r chi.Router) {
			r.Use(authenticated, middleware.RequireOperator(h.operators, store.RoleSettleDeposits))
			r.Post("/{id}/schedule", h.ScheduleDeposit)
			r.Post("/{id}/execute", h.ExecuteDeposit)
			r.Post("/{id}/fail", h.FailDeposit)
		})
	})
	router.Route("/withdrawals", func(r chi.Router) {
		r.Post("/", h.CreateWithdrawal)
		r.Get("/{id}", h.GetWithdrawal)
		r.Group(func(r chi.Router) {
			r.Use(authenticated, middleware.RequireOperator(h.operators, store.RoleSettleWithdrawals))
			r.Post("/{id}/schedule", h.ScheduleWithdrawal)
			r.Post("/{id}/execute", h.ExecuteWithdrawal)
			r.Post("/{id}/fail", h.FailWithdrawal)
		})
	})
	router.Get("/accounts/{accountID}/deposits", h.ListAccountDeposits)
	router.Get("/accounts/{accountID}/withdrawals", h.ListAccountWithdrawals)
	router.Get("/ws", h.WS)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticated)
		r.With(middleware.RequireOperator(h.operators, "")).Get("/audit", h.ListAuditLogs)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, models.Health{Status: "ok"})
	})
	return router
}
