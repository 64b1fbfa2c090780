package client

import (
	"context"

	"umrah-backoffice/internal/domain"
)

// Repository persists and fetches pilgrim records.
type Repository interface {
	List(ctx context.Context) ([]domain.Client, error)
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	Create(ctx context.Context, c domain.Client) (*domain.Client, error)
	// BulkCreate inserts every client or none.
	BulkCreate(ctx context.Context, cs []domain.Client) ([]domain.Client, error)
	Update(ctx context.Context, id string, p domain.ClientPatch) (*domain.Client, error)
	Delete(ctx context.Context, id string) error
}
