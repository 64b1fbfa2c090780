package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"umrah-backoffice/internal/config"
	"umrah-backoffice/internal/db"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/migrate"
	"umrah-backoffice/internal/mongodb"
)

func main() {
	down := flag.Bool("down", false, "roll back every Postgres migration instead of applying them")
	flag.Parse()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "migrate")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *down, logger); err != nil {
		logging.Exit(logger, "migrate failed", err)
	}
}

func run(cfg config.Config, down bool, logger *zap.Logger) error {
	ctx := context.Background()
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()

		if down {
			if err := migrate.Down(ctx, pool); err != nil {
				return fmt.Errorf("roll back migrations: %w", err)
			}
			logger.Info("migrations rolled back")
			return nil
		}
		if err := migrate.Apply(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("migrations applied")

	case config.BackendMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		if err := mongodb.EnsureIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info("indexes ensured", zap.String("database", cfg.MongoDatabase))

	default:
		logger.Info("nothing to migrate", zap.String("backend", cfg.StoreBackend))
	}
	return nil
}
