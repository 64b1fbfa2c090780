package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"umrah-backoffice/internal/config"
	"umrah-backoffice/internal/httpserver"
	"umrah-backoffice/internal/importer"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/retry"
	"umrah-backoffice/internal/service/auth"
	clientsvc "umrah-backoffice/internal/service/client"
	invoicesvc "umrah-backoffice/internal/service/invoice"
	"umrah-backoffice/internal/service/rooming"
	"umrah-backoffice/internal/store"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "api")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logging.Exit(logger, "api stopped", err)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	manager := rooming.NewManager(st.Rooms, st.Clients, rooming.Options{
		Logger:  logger.Named("rooming"),
		Retry:   retry.Options{MaxRetries: cfg.StoreMaxRetries, Logger: logger},
		Timeout: cfg.StoreOpTimeout,
	})
	clients := clientsvc.New(st.Clients, manager, logger.Named("clients"))
	invoices := invoicesvc.New(st.Invoices, clients, st.Agents, invoicesvc.Options{
		TaxRate: cfg.InvoiceTaxRate,
		Logger:  logger.Named("invoices"),
	})
	authSvc, err := auth.New(auth.NewRepositoryVerifier(st.Agents), st.Agents, auth.Options{
		Secret: cfg.JWTSecret,
		TTL:    cfg.TokenTTL,
		Logger: logger.Named("auth"),
	})
	if err != nil {
		return err
	}

	if err := manager.Refresh(ctx); err != nil {
		logger.Warn("initial rooming load failed; will retry on demand", zap.Error(err))
	}
	reconciler := rooming.NewReconciler(manager, cfg.RoomingRefresh, logger.Named("reconciler"))
	if err := reconciler.Start(ctx); err != nil {
		return err
	}
	defer reconciler.Stop()

	srv := httpserver.New(cfg.HTTPAddr, logger.Named("http"), httpserver.Deps{
		Auth:        authSvc,
		Invoices:    invoices,
		Clients:     clients,
		Rooming:     manager,
		Importer:    importer.New(clients, nil, logger.Named("importer")),
		Ping:        st.Ping,
		CORSOrigins: splitOrigins(cfg.CORSOrigins),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
