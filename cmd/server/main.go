package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hbank/internal/config"
	"hbank/internal/db"
	"hbank/internal/handlers"
	"hbank/internal/logging"
	"hbank/internal/services"
	"hbank/internal/store"
	"hbank/internal/websocket"

	"github.com/go-kit/log/level"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.New(os.Stderr, "info")
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DB)
	cancel()
	if err != nil {
		level.Error(logger).Log("msg", "failed to connect database", "err", err)
		os.Exit(1)
	}
	defer database.Close()

	rateStore := store.NewRateStore(database)
	depositStore := store.NewDepositStore(database)
	withdrawalStore := store.NewWithdrawalStore(database)
	operators := store.NewOperatorStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	rateService := services.NewRateService(txRunner, rateStore, audit, hub, cfg.RateValidity)
	rates := services.NewLoggingRateService(logging.Scoped(logger, "service:rate"), rateService)
	deposits := services.NewLoggingDepositService(
		logging.Scoped(logger, "service:deposit"),
		services.NewDepositService(txRunner, rateService, depositStore, audit, hub),
	)
	withdrawals := services.NewLoggingWithdrawalService(
		logging.Scoped(logger, "service:withdrawal"),
		services.NewWithdrawalService(txRunner, rateService, withdrawalStore, audit, hub),
	)

	handler := handlers.New(cfg, logging.Scoped(logger, "api"), txRunner, rates, deposits, withdrawals, operators, audit, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		level.Info(logger).Log("msg", "vault API listening", "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("msg", "server error", "err", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		level.Error(logger).Log("msg", "shutdown error", "err", err)
		return
	}
	level.Info(logger).Log("msg", "server stopped")
}
