// Package seed creates the staff accounts and demo rooms used for manual testing.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/service/auth"
)

type agentFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
}

type registrar interface {
	Register(ctx context.Context, in auth.NewAgent) (*domain.Agent, error)
}

type roomStore interface {
	List(ctx context.Context) ([]domain.Room, error)
	Create(ctx context.Context, r domain.Room) (*domain.Room, error)
}

type agentSeed struct {
	Name       string
	Email      string
	Role       domain.Role
	Department string
}

var agents = []agentSeed{
	{Name: "Director", Email: "director@example.com", Role: domain.RoleDirector, Department: "Management"},
	{Name: "Demo Agent", Email: "demo@example.com", Role: domain.RoleAgent, Department: "Sales"},
	{Name: "John Agent", Email: "john@example.com", Role: domain.RoleAgent, Department: "Sales"},
}

func floor(n int) *int { return &n }

var rooms = []domain.Room{
	{HotelName: "Swissotel Makkah", City: domain.CityMakkah, Type: domain.RoomQuad, FloorNumber: floor(12), RoomNumber: "1204"},
	{HotelName: "Swissotel Makkah", City: domain.CityMakkah, Type: domain.RoomDouble, FloorNumber: floor(12), RoomNumber: "1206"},
	{HotelName: "Pullman Zamzam Madinah", City: domain.CityMadinah, Type: domain.RoomTriple, FloorNumber: floor(7), RoomNumber: "712"},
}

// Deps are the stores and services the seed writes through.
type Deps struct {
	Agents   agentFinder
	Registry registrar
	Rooms    roomStore
}

// Result counts what Apply created on this run.
type Result struct {
	Agents int
	Rooms  int
}

// Apply creates any missing seed agent and demo room. Existing records are
// left untouched, so running it twice is harmless. password is shared by
// every seeded account.
func Apply(ctx context.Context, deps Deps, password string, logger *zap.Logger) (*Result, error) {
	logger = logging.OrNop(logger)
	if password == "" {
		return nil, errors.New("seed: password is required")
	}

	res := &Result{}
	for _, a := range agents {
		created, err := ensureAgent(ctx, deps, a, password)
		if err != nil {
			return res, fmt.Errorf("ensure agent %s: %w", a.Email, err)
		}
		if created {
			res.Agents++
			logger.Info("seed: agent created", zap.String("email", a.Email), zap.String("role", string(a.Role)))
		}
	}

	existing, err := deps.Rooms.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list rooms: %w", err)
	}
	for _, r := range rooms {
		if hasRoom(existing, r) {
			continue
		}
		r.SetType(r.Type)
		if _, err := deps.Rooms.Create(ctx, r); err != nil {
			return res, fmt.Errorf("create room %s %s: %w", r.HotelName, r.RoomNumber, err)
		}
		res.Rooms++
		logger.Info("seed: room created", zap.String("hotel", r.HotelName), zap.String("room", r.RoomNumber))
	}
	return res, nil
}

func ensureAgent(ctx context.Context, deps Deps, a agentSeed, password string) (bool, error) {
	_, err := deps.Agents.GetByEmail(ctx, a.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	_, err = deps.Registry.Register(ctx, auth.NewAgent{
		Name:       a.Name,
		Email:      a.Email,
		Password:   password,
		Role:       a.Role,
		Department: a.Department,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return false, nil
	}
	return err == nil, err
}

func hasRoom(existing []domain.Room, r domain.Room) bool {
	for _, e := range existing {
		if e.City == r.City && e.HotelName == r.HotelName && e.RoomNumber == r.RoomNumber {
			return true
		}
	}
	return false
}
