package client

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"umrah-backoffice/internal/domain"
)

// Memory is an in-process Repository for tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	clients map[string]domain.Client
	now     func() time.Time

	// FailNext, when set, is returned by the next write and then cleared.
	FailNext error
}

func NewMemory() *Memory {
	return &Memory{clients: make(map[string]domain.Client), now: time.Now}
}

func (m *Memory) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *Memory) List(_ context.Context) ([]domain.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (m *Memory) Create(_ context.Context, c domain.Client) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = m.now().UTC()
	m.clients[c.ID] = c
	return &c, nil
}

func (m *Memory) BulkCreate(_ context.Context, cs []domain.Client) ([]domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := make([]domain.Client, 0, len(cs))
	now := m.now().UTC()
	for _, c := range cs {
		c.ID = uuid.NewString()
		c.CreatedAt = now
		m.clients[c.ID] = c
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) Update(_ context.Context, id string, p domain.ClientPatch) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	c = p.Apply(c)
	m.clients[id] = c
	return &c, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.clients[id]; !ok {
		return fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	delete(m.clients, id)
	return nil
}
