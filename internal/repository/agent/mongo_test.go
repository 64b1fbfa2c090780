package agent

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/mongodb"
)

func testDatabase(ctx context.Context, t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	mc, err := mongodb.Connect(ctx, uri)
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() { _ = mc.Disconnect(context.Background()) })

	db := mc.Database("umrah_test_agents")
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop database: %v", err)
	}
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return db
}

func TestMongo_EmailIsUniqueAndCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewMongo(testDatabase(ctx, t), nil)

	a, err := repo.Create(ctx, domain.Agent{Name: "Demo", Email: " Demo@Example.com", Role: domain.RoleAgent, PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", a.Email)

	got, err := repo.GetByEmail(ctx, "DEMO@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = repo.Create(ctx, domain.Agent{Name: "Other", Email: "demo@EXAMPLE.com", Role: domain.RoleAgent})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = repo.Create(ctx, domain.Agent{Name: "Director", Email: "director@example.com", Role: domain.RoleDirector})
	require.NoError(t, err)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Demo", all[0].Name)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrNotFound)
}
