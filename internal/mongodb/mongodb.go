// Package mongodb connects to the document backend and owns its collection layout.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"umrah-backoffice/internal/domain"
)

// Collection names.
const (
	Agents      = "agents"
	Clients     = "clients"
	Invoices    = "invoices"
	Rooms       = "rooms"
	Assignments = "assignments"
)

// Connect opens a client and verifies connectivity with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the uniqueness rules the domain relies on.
// One assignment per (client, city); one agent per email. Legacy assignments
// without a city fall outside the unique index, their city comes from the room.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(Assignments).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "city", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"city": bson.M{"$gt": ""}}).
				SetName("assignments_client_city_set"),
		},
		{
			Keys:    bson.D{{Key: "roomId", Value: 1}},
			Options: options.Index().SetName("assignments_room"),
		},
	})
	if err != nil {
		return fmt.Errorf("assignments indexes: %w", err)
	}

	_, err = db.Collection(Agents).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("agents_email"),
	})
	if err != nil {
		return fmt.Errorf("agents indexes: %w", err)
	}

	_, err = db.Collection(Invoices).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "clientId", Value: 1}},
		Options: options.Index().SetName("invoices_client"),
	})
	if err != nil {
		return fmt.Errorf("invoices indexes: %w", err)
	}
	return nil
}

// Translate maps driver errors onto the domain taxonomy.
func Translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, domain.ErrAlreadyExists)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", what, domain.ErrStore, err)
}
