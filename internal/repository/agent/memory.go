package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"umrah-backoffice/internal/domain"
)

// Memory is an in-process Repository for tests and local runs.
type Memory struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
}

func NewMemory() *Memory {
	return &Memory{agents: make(map[string]domain.Agent)}
}

func (m *Memory) List(_ context.Context) ([]domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.agents {
		if strings.EqualFold(a.Email, strings.TrimSpace(email)) {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("agent %s: %w", email, domain.ErrNotFound)
}

func (m *Memory) Create(_ context.Context, a domain.Agent) (*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.agents {
		if strings.EqualFold(existing.Email, a.Email) {
			return nil, fmt.Errorf("agent %s: %w", a.Email, domain.ErrAlreadyExists)
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	m.agents[a.ID] = a
	return &a, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}
	delete(m.agents, id)
	return nil
}
