package agent

import (
	"context"

	"umrah-backoffice/internal/domain"
)

// Repository persists staff accounts. Emails are unique case-insensitively.
type Repository interface {
	List(ctx context.Context) ([]domain.Agent, error)
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	Create(ctx context.Context, a domain.Agent) (*domain.Agent, error)
	Delete(ctx context.Context, id string) error
}
