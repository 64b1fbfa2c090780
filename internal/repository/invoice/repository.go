package invoice

import (
	"context"

	"umrah-backoffice/internal/domain"
)

// Repository persists invoices together with their items. Reads nest the
// invoice's client when it still exists.
type Repository interface {
	// List returns invoices newest first; an empty agentID lists everyone's.
	List(ctx context.Context, agentID string) ([]domain.Invoice, error)
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	// Create stores the invoice and its items in one unit.
	Create(ctx context.Context, inv domain.Invoice) (*domain.Invoice, error)
	Update(ctx context.Context, id string, p domain.InvoicePatch) (*domain.Invoice, error)
	Delete(ctx context.Context, id string) error
	// CountByClient reports how many invoices reference the client.
	CountByClient(ctx context.Context, clientID string) (int, error)
}
