package room

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"umrah-backoffice/internal/domain"
)

// ClientLookup resolves the clients nested into assignments.
type ClientLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

// Memory is an in-process Repository for tests and local runs. It enforces
// capacity and the one-room-per-(client, city) rule under a single lock.
type Memory struct {
	mu          sync.RWMutex
	rooms       map[string]domain.Room
	assignments map[string]domain.Assignment
	clients     ClientLookup
	now         func() time.Time

	// FailNext, when set, is returned by the next call and then cleared.
	FailNext error
	// Calls counts List invocations.
	Calls int
}

func NewMemory(clients ClientLookup) *Memory {
	return &Memory{
		rooms:       make(map[string]domain.Room),
		assignments: make(map[string]domain.Assignment),
		clients:     clients,
		now:         time.Now,
	}
}

func (m *Memory) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *Memory) List(ctx context.Context) ([]domain.Room, error) {
	m.mu.Lock()
	m.Calls++
	if err := m.takeFailure(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	rooms := make([]domain.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	assignments := m.sortedAssignments()
	m.mu.Unlock()

	sort.Slice(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.City != b.City {
			return a.City < b.City
		}
		if a.HotelName != b.HotelName {
			return a.HotelName < b.HotelName
		}
		if a.RoomNumber != b.RoomNumber {
			return a.RoomNumber < b.RoomNumber
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	index := make(map[string]int, len(rooms))
	for i := range rooms {
		rooms[i].Assignments = []domain.Assignment{}
		index[rooms[i].ID] = i
	}
	for _, a := range assignments {
		i, ok := index[a.RoomID]
		if !ok {
			continue
		}
		a, ok = m.embed(ctx, a)
		if !ok {
			continue
		}
		rooms[i].Assignments = append(rooms[i].Assignments, a)
	}
	return rooms, nil
}

func (m *Memory) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	m.mu.RLock()
	room, ok := m.rooms[id]
	assignments := m.sortedAssignments()
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	room.Assignments = []domain.Assignment{}
	for _, a := range assignments {
		if a.RoomID != id {
			continue
		}
		if a, ok := m.embed(ctx, a); ok {
			room.Assignments = append(room.Assignments, a)
		}
	}
	return &room, nil
}

// embed joins the assignment's client. Assignments of vanished clients are dropped.
func (m *Memory) embed(ctx context.Context, a domain.Assignment) (domain.Assignment, bool) {
	if m.clients == nil {
		return a, true
	}
	c, err := m.clients.GetByID(ctx, a.ClientID)
	if err != nil {
		return a, false
	}
	a.Client = c
	return a, true
}

// sortedAssignments must be called with mu held.
func (m *Memory) sortedAssignments() []domain.Assignment {
	out := make([]domain.Assignment, 0, len(m.assignments))
	for _, a := range m.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) Create(_ context.Context, in domain.Room) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	in.ID = uuid.NewString()
	in.SetType(in.Type)
	in.CreatedAt = m.now().UTC()
	in.Assignments = []domain.Assignment{}
	m.rooms[in.ID] = in
	return &in, nil
}

func (m *Memory) UpdateType(ctx context.Context, id string, t domain.RoomType) (*domain.Room, error) {
	m.mu.Lock()
	if err := m.takeFailure(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	room, ok := m.rooms[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	if occupancy := m.occupancy(ctx, id); occupancy > t.Capacity() {
		m.mu.Unlock()
		return nil, fmt.Errorf("room %s holds %d, %s seats %d: %w", id, occupancy, t, t.Capacity(), domain.ErrCapacityExceeded)
	}
	room.SetType(t)
	m.rooms[id] = room
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.rooms[id]; !ok {
		return fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	for aid, a := range m.assignments {
		if a.RoomID == id {
			delete(m.assignments, aid)
		}
	}
	delete(m.rooms, id)
	return nil
}

func (m *Memory) Assign(ctx context.Context, roomID, clientID string, city domain.City, at time.Time) (*domain.Assignment, error) {
	if m.clients != nil {
		if _, err := m.clients.GetByID(ctx, clientID); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	if room.City != city {
		return nil, fmt.Errorf("room %s is in %s, not %s: %w", roomID, room.City, city, domain.ErrValidation)
	}

	// Decide before mutating so a full room leaves the previous seat intact.
	previous := ""
	for aid, a := range m.assignments {
		if a.ClientID == clientID && a.City == city {
			previous = aid
		}
	}
	occupancy := m.occupancy(ctx, roomID)
	if previous != "" && m.assignments[previous].RoomID == roomID {
		occupancy--
	}
	if occupancy >= room.Capacity {
		return nil, fmt.Errorf("room %s has %d/%d: %w", roomID, occupancy, room.Capacity, domain.ErrCapacityExceeded)
	}
	if previous != "" {
		delete(m.assignments, previous)
	}

	a := domain.Assignment{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		ClientID:   clientID,
		City:       city,
		AssignedAt: at.UTC(),
	}
	m.assignments[a.ID] = a
	return &a, nil
}

func (m *Memory) Unassign(_ context.Context, clientID string, city domain.City) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return 0, err
	}
	n := 0
	for aid, a := range m.assignments {
		if a.ClientID == clientID && (city == "" || a.City == city) {
			delete(m.assignments, aid)
			n++
		}
	}
	return n, nil
}

// occupancy must be called with mu write-locked. Assignments of vanished
// clients are dropped so the enforced count matches what List reports.
func (m *Memory) occupancy(ctx context.Context, roomID string) int {
	n := 0
	for aid, a := range m.assignments {
		if a.RoomID != roomID {
			continue
		}
		if _, ok := m.embed(ctx, a); !ok {
			delete(m.assignments, aid)
			continue
		}
		n++
	}
	return n
}
