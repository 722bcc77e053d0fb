package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budget/internal/auth"
	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	users, err := auth.ParseUsers(cfg.AuthUsers)
	if err != nil {
		logger.Error("Invalid AUTH_USERS", log.FieldError, err)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ledgerOpts := []services.LedgerOption{}
	if be.Publisher != nil {
		ledgerOpts = append(ledgerOpts, services.WithPublisher(be.Publisher))
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Ledger: services.NewLedger(be.Store, ledgerOpts...),
		Users:  users,
		Sessions: session.NewManager(session.Options{
			TTL:    cfg.SessionTTL,
			Secure: cfg.SecureCookies,
		}),
		Logger: logger,
	})
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := be.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting budget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"users", len(users.Names()),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
