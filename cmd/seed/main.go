package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"umrah-backoffice/internal/config"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/seed"
	"umrah-backoffice/internal/service/auth"
	"umrah-backoffice/internal/store"
)

func main() {
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "password for every seeded account (default $SEED_PASSWORD)")
	flag.Parse()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "seed")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *password, logger); err != nil {
		logging.Exit(logger, "seed failed", err)
	}
}

func run(cfg config.Config, password string, logger *zap.Logger) error {
	if password == "" {
		return errors.New("set -password or SEED_PASSWORD")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// Seeding never issues tokens, so any secret will do when none is configured.
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "seed-only"
	}
	authSvc, err := auth.New(auth.NewRepositoryVerifier(st.Agents), st.Agents, auth.Options{Secret: secret, Logger: logger})
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	res, err := seed.Apply(ctx, seed.Deps{Agents: st.Agents, Registry: authSvc, Rooms: st.Rooms}, password, logger)
	if err != nil {
		return fmt.Errorf("seed apply: %w", err)
	}
	logger.Info("seed applied", zap.Int("agents", res.Agents), zap.Int("rooms", res.Rooms))
	return nil
}
