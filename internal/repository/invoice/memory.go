package invoice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"umrah-backoffice/internal/domain"
)

// ClientLookup resolves the client nested into each invoice.
type ClientLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

// Memory is an in-process Repository for tests and local runs.
type Memory struct {
	mu       sync.RWMutex
	invoices map[string]domain.Invoice
	clients  ClientLookup
	now      func() time.Time

	// FailNext, when set, is returned by the next write and then cleared.
	FailNext error
}

func NewMemory(clients ClientLookup) *Memory {
	return &Memory{invoices: make(map[string]domain.Invoice), clients: clients, now: time.Now}
}

// SetClock replaces the creation timestamp source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *Memory) embed(ctx context.Context, inv domain.Invoice) domain.Invoice {
	inv.Items = append([]domain.InvoiceItem{}, inv.Items...)
	inv.Client = nil
	if inv.ClientID == "" || m.clients == nil {
		return inv
	}
	if c, err := m.clients.GetByID(ctx, inv.ClientID); err == nil {
		inv.Client = c
	}
	return inv
}

func (m *Memory) List(ctx context.Context, agentID string) ([]domain.Invoice, error) {
	m.mu.RLock()
	out := make([]domain.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		if agentID == "" || inv.AgentID == agentID {
			out = append(out, inv)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	for i := range out {
		out[i] = m.embed(ctx, out[i])
	}
	return out, nil
}

func (m *Memory) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	m.mu.RLock()
	inv, ok := m.invoices[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	inv = m.embed(ctx, inv)
	return &inv, nil
}

func (m *Memory) Create(ctx context.Context, inv domain.Invoice) (*domain.Invoice, error) {
	m.mu.Lock()
	if err := m.takeFailure(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	now := m.now().UTC()
	inv.ID = uuid.NewString()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	inv.Items = withItemIDs(inv.ID, inv.Items)
	m.invoices[inv.ID] = inv
	m.mu.Unlock()

	inv = m.embed(ctx, inv)
	return &inv, nil
}

func withItemIDs(invoiceID string, items []domain.InvoiceItem) []domain.InvoiceItem {
	out := make([]domain.InvoiceItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.InvoiceID = invoiceID
		out = append(out, it)
	}
	return out
}

func (m *Memory) Update(ctx context.Context, id string, p domain.InvoicePatch) (*domain.Invoice, error) {
	m.mu.Lock()
	if err := m.takeFailure(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	inv, ok := m.invoices[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	if p.ExpectStatus != nil && inv.Status != *p.ExpectStatus {
		m.mu.Unlock()
		return nil, fmt.Errorf("invoice %s is %s, not %s: %w", id, inv.Status, *p.ExpectStatus, domain.ErrInvalidTransition)
	}
	inv = p.Apply(inv)
	if p.Items != nil {
		inv.Items = withItemIDs(id, p.Items)
	}
	inv.UpdatedAt = m.now().UTC()
	m.invoices[id] = inv
	m.mu.Unlock()

	inv = m.embed(ctx, inv)
	return &inv, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.invoices[id]; !ok {
		return fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	delete(m.invoices, id)
	return nil
}

func (m *Memory) CountByClient(_ context.Context, clientID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, inv := range m.invoices {
		if inv.ClientID == clientID {
			n++
		}
	}
	return n, nil
}
