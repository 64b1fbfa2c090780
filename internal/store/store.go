// Package store wires the repository adapters of one backend together.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"umrah-backoffice/internal/config"
	"umrah-backoffice/internal/db"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/mongodb"
	"umrah-backoffice/internal/repository/agent"
	"umrah-backoffice/internal/repository/client"
	"umrah-backoffice/internal/repository/invoice"
	"umrah-backoffice/internal/repository/room"
	"umrah-backoffice/internal/retry"
)

// Store bundles the repositories the services depend on.
type Store struct {
	Agents   agent.Repository
	Clients  client.Repository
	Invoices invoice.Repository
	Rooms    room.Repository

	// Ping checks backend connectivity for readiness probes.
	Ping  func(ctx context.Context) error
	close func()
}

// Close releases the backend connection.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the backend named by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Store, error) {
	logger = logging.OrNop(logger)
	connectRetry := retry.Options{MaxRetries: cfg.StoreMaxRetries, Logger: logger}
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := retry.Do(ctx, connectRetry, func(ctx context.Context) (*pgxpool.Pool, error) {
			return db.Connect(ctx, cfg.DBConnString)
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("store: postgres connected")
		return NewPostgres(pool, logger), nil

	case config.BackendMongo:
		mc, err := retry.Do(ctx, connectRetry, func(ctx context.Context) (*mongo.Client, error) {
			return mongodb.Connect(ctx, cfg.MongoURI)
		})
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		database := mc.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			_ = mc.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("store: mongo connected", zap.String("database", cfg.MongoDatabase))
		s := NewMongo(database, logger)
		s.close = func() { _ = mc.Disconnect(context.Background()) }
		return s, nil

	case config.BackendMemory:
		logger.Warn("store: using in-memory backend; data is lost on exit")
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{
		Agents:   agent.NewPostgres(pool, logger),
		Clients:  client.NewPostgres(pool, logger),
		Invoices: invoice.NewPostgres(pool, logger),
		Rooms:    room.NewPostgres(pool, logger),
		Ping:     pool.Ping,
		close:    pool.Close,
	}
}

func NewMongo(database *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		Agents:   agent.NewMongo(database, logger),
		Clients:  client.NewMongo(database, logger),
		Invoices: invoice.NewMongo(database, logger),
		Rooms:    room.NewMongo(database, logger),
		Ping: func(ctx context.Context) error {
			return database.Client().Ping(ctx, readpref.Primary())
		},
	}
}

// NewMemory returns a Store whose repositories share in-process state.
func NewMemory() *Store {
	clients := client.NewMemory()
	return &Store{
		Agents:   agent.NewMemory(),
		Clients:  clients,
		Invoices: invoice.NewMemory(clients),
		Rooms:    room.NewMemory(clients),
		Ping:     func(context.Context) error { return nil },
	}
}
