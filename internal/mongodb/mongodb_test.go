package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"umrah-backoffice/internal/domain"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil, "room r1"))
	assert.ErrorIs(t, Translate(mongo.ErrNoDocuments, "room r1"), domain.ErrNotFound)
	assert.ErrorIs(t, Translate(fmt.Errorf("find: %w", context.Canceled), "room r1"), context.Canceled)

	err := Translate(errors.New("server selection timeout"), "list rooms")
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Contains(t, err.Error(), "list rooms")
}

func TestEnsureIndexes_ToleratesLegacyAssignments(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	mc, err := Connect(ctx, uri)
	require.NoError(t, err)
	defer func() { _ = mc.Disconnect(context.Background()) }()

	db := mc.Database("umrah_test_indexes")
	require.NoError(t, db.Drop(ctx))

	// Two city-less rows for the same client predate the unique index.
	assignments := db.Collection(Assignments)
	for _, id := range []string{"legacy-1", "legacy-2"} {
		_, err := assignments.InsertOne(ctx, bson.M{"_id": id, "roomId": "r1", "clientId": "c1", "assignedAt": time.Now().UTC()})
		require.NoError(t, err)
	}
	require.NoError(t, EnsureIndexes(ctx, db))
	require.NoError(t, EnsureIndexes(ctx, db))

	_, err = assignments.InsertOne(ctx, bson.M{"_id": "a1", "roomId": "r1", "clientId": "c1", "city": string(domain.CityMakkah)})
	require.NoError(t, err)
	_, err = assignments.InsertOne(ctx, bson.M{"_id": "a2", "roomId": "r2", "clientId": "c1", "city": string(domain.CityMakkah)})
	assert.ErrorIs(t, Translate(err, "assign c1"), domain.ErrAlreadyExists)
	_, err = assignments.InsertOne(ctx, bson.M{"_id": "a3", "roomId": "r3", "clientId": "c1", "city": string(domain.CityMadinah)})
	assert.NoError(t, err)
}
