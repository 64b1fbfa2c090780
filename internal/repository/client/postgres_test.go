package client

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/migrate"
)

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE room_assignments, rooms, items, invoices, clients CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

func TestPostgres_BulkCreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	repo := NewPostgres(pool, nil)

	// The blank name trips the CHECK constraint after the first row went in.
	_, err := repo.BulkCreate(ctx, []domain.Client{{Name: "Ahmed Ali"}, {Name: ""}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	created, err := repo.BulkCreate(ctx, []domain.Client{{Name: "Ahmed Ali"}, {Name: "Fatima Zahra", Gender: domain.GenderFemale}})
	require.NoError(t, err)
	require.Len(t, created, 2)

	passport := "AB1234"
	updated, err := repo.Update(ctx, created[1].ID, domain.ClientPatch{PassportNumber: &passport})
	require.NoError(t, err)
	assert.Equal(t, passport, updated.PassportNumber)
	assert.Equal(t, domain.GenderFemale, updated.Gender)
}

func TestPostgres_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	repo := NewPostgres(pool, nil)

	_, err := repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = repo.Delete(ctx, strings.Repeat("0", 8)+"-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
