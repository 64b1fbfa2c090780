package invoice

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umrah-backoffice/internal/calc"
	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/migrate"
	"umrah-backoffice/internal/repository/client"
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

func TestPostgres_UpdateReplacesItems(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	clients := client.NewPostgres(pool, nil)
	repo := NewPostgres(pool, nil)

	c, err := clients.Create(ctx, domain.Client{Name: "Ahmed Ali", Email: "ahmed@example.com"})
	require.NoError(t, err)

	items := []domain.InvoiceItem{
		{Description: "Umrah package", Quantity: 2, UnitPrice: 12000},
		{Description: "Visa", Quantity: 2, UnitPrice: 800},
	}
	totals := calc.Totals(items, 0)
	inv, err := repo.Create(ctx, domain.Invoice{
		InvoiceNumber: "INV-20260412-001",
		ClientID:      c.ID,
		AgentID:       "a1",
		AgentName:     "Demo Agent",
		Status:        domain.StatusDraft,
		Items:         items,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
	})
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Umrah package", inv.Items[0].Description)
	assert.Equal(t, 24000.0, inv.Items[0].Total)
	assert.Equal(t, 25600.0, inv.Total)
	require.NotNil(t, inv.Client)
	assert.Equal(t, "Ahmed Ali", inv.Client.Name)

	replaced := []domain.InvoiceItem{{Description: "Hotel upgrade", Quantity: 3, UnitPrice: 500}}
	next := calc.Totals(replaced, 0)
	draft, sent := domain.StatusDraft, domain.StatusSent
	updated, err := repo.Update(ctx, inv.ID, domain.InvoicePatch{
		Status:       &sent,
		ExpectStatus: &draft,
		Items:        replaced,
		Subtotal:     &next.Subtotal,
		Tax:          &next.Tax,
		Total:        &next.Total,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, updated.Status)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Hotel upgrade", updated.Items[0].Description)
	assert.Equal(t, 1500.0, updated.Items[0].Total)
	assert.Equal(t, 1500.0, updated.Subtotal)
	assert.Equal(t, 1500.0, updated.Total)

	paid := domain.StatusPaid
	_, err = repo.Update(ctx, inv.ID, domain.InvoicePatch{Status: &paid, ExpectStatus: &draft})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, got.Status)

	n, err := repo.CountByClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Delete(ctx, inv.ID))
	var left int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM items WHERE invoice_id = $1`, inv.ID).Scan(&left))
	assert.Zero(t, left)
	_, err = repo.GetByID(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, inv.ID), domain.ErrNotFound)
}
