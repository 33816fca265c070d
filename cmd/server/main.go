package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollbook/internal/audit"
	"rollbook/internal/platform/config"
	"rollbook/internal/platform/httpserver"
	"rollbook/internal/platform/logger"
	"rollbook/internal/platform/middleware"
	"rollbook/internal/provision/accounts"
	"rollbook/internal/provision/batch"
	"rollbook/internal/provision/handler"
	provmetrics "rollbook/internal/provision/metrics"
	"rollbook/internal/provision/service"
	"rollbook/internal/provision/store"
	"rollbook/internal/reconcile"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	stores, closeStores, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize record store", "error", err.Error())
		os.Exit(1)
	}
	defer closeStores()

	accountSvc := buildAccounts(cfg, log)
	issuer := accounts.NewIssuer(cfg.Accounts.IssuerURL, cfg.Accounts.Timeout, log)
	metrics := provmetrics.New()
	auditor := audit.NewPublisher(audit.NewInMemoryStore())

	orchestrator := service.New(accountSvc, stores, log,
		service.WithIssuer(issuer),
		service.WithAudit(auditor),
		service.WithMetrics(metrics),
		service.WithSecretLength(cfg.Provision.SecretLength),
		service.WithEmailDomain(cfg.Accounts.EmailDomain),
	)
	pipeline := batch.NewPipeline(orchestrator, log, metrics).WithAudit(auditor)

	router := chi.NewRouter()
	h := handler.New(orchestrator, pipeline, middleware.NewJWTValidator(cfg.JWTSigningKey), log)
	h.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	sweeper := reconcile.NewSweeper(accountSvc, stores.Profiles, log)
	go func() {
		if err := sweeper.Run(ctx, cfg.Provision.ReconcileInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reconcile sweep stopped", "error", err.Error())
		}
	}()

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting rollbook provisioning server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("received interruption signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
	log.Info("shutdown complete")
}

// buildStores selects the record-store backend. An empty DSN keeps everything
// in memory for local runs.
func buildStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Stores, func(), error) {
	if cfg.Store.DSN == "" {
		log.Warn("STORE_DSN is empty, using in-memory stores")
		return store.NewInMemoryStores(), func() {}, nil
	}
	db, err := store.Open(ctx, cfg.Store.DSN)
	if err != nil {
		return store.Stores{}, nil, err
	}
	return store.NewPostgresStores(db), func() { _ = db.Close() }, nil
}

// buildAccounts returns the account-service client, or the in-memory fake
// when no base URL is configured.
func buildAccounts(cfg *config.Config, log *slog.Logger) accounts.Service {
	if cfg.Accounts.BaseURL == "" {
		log.Warn("ACCOUNTS_BASE_URL is empty, using in-memory account service")
		return accounts.NewMemory()
	}
	return accounts.NewClient(cfg.Accounts.BaseURL, cfg.Accounts.Timeout)
}
