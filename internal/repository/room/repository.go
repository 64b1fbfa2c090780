package room

import (
	"context"
	"time"

	"umrah-backoffice/internal/domain"
)

// Repository persists rooms and the assignments that house clients in them.
type Repository interface {
	// List returns every room with its assignments (and their clients) nested.
	List(ctx context.Context) ([]domain.Room, error)
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	Create(ctx context.Context, r domain.Room) (*domain.Room, error)
	// UpdateType changes type and capacity together.
	UpdateType(ctx context.Context, id string, t domain.RoomType) (*domain.Room, error)
	// Delete removes the room and any assignment still pointing at it.
	Delete(ctx context.Context, id string) error
	// Assign retires the client's assignment in city, if any, and links it to roomID.
	Assign(ctx context.Context, roomID, clientID string, city domain.City, at time.Time) (*domain.Assignment, error)
	// Unassign deletes the client's assignments in city, or in every city
	// when city is empty. Deleting nothing is not an error.
	Unassign(ctx context.Context, clientID string, city domain.City) (int, error)
}
