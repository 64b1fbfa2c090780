package invoice

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"umrah-backoffice/internal/calc"
	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
	invoicerepo "umrah-backoffice/internal/repository/invoice"
)

type clientService interface {
	Get(ctx context.Context, id string) (*domain.Client, error)
	Create(ctx context.Context, c domain.Client) (*domain.Client, error)
	Update(ctx context.Context, id string, p domain.ClientPatch) (*domain.Client, error)
	Delete(ctx context.Context, id string) error
}

type agentLister interface {
	List(ctx context.Context) ([]domain.Agent, error)
}

// Options tunes a Service. Zero values are usable.
type Options struct {
	TaxRate float64
	Now     func() time.Time
	// Rand picks invoice number suffixes.
	Rand   *rand.Rand
	Logger *zap.Logger
}

type Service struct {
	repo    invoicerepo.Repository
	clients clientService
	agents  agentLister
	taxRate float64
	now     func() time.Time
	logger  *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

func New(repo invoicerepo.Repository, clients clientService, agents agentLister, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Service{
		repo:    repo,
		clients: clients,
		agents:  agents,
		taxRate: opts.TaxRate,
		now:     opts.Now,
		rand:    opts.Rand,
		logger:  logging.OrNop(opts.Logger),
	}
}

type ItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Input creates an invoice. A Client without an id is created on the fly.
type Input struct {
	InvoiceNumber  string               `json:"invoiceNumber,omitempty"`
	Client         domain.Client        `json:"client"`
	Items          []ItemInput          `json:"items"`
	Status         domain.InvoiceStatus `json:"status,omitempty"`
	DueDate        *time.Time           `json:"dueDate,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	PassportNumber string               `json:"passportNumber,omitempty"`
	Gender         domain.Gender        `json:"gender,omitempty"`
	FlightNumber   string               `json:"flightNumber,omitempty"`
	RoomType       domain.RoomType      `json:"roomType,omitempty"`
	VisaStatus     domain.VisaStatus    `json:"visaStatus,omitempty"`
	DepartureDate  *time.Time           `json:"departureDate,omitempty"`
	DateOfBirth    string               `json:"dateOfBirth,omitempty"`
}

// ListResult is a filtered invoice list and its money summary.
type ListResult struct {
	Invoices []domain.Invoice `json:"invoices"`
	Summary  calc.Summary     `json:"summary"`
}

func toItems(in []ItemInput) ([]domain.InvoiceItem, error) {
	items := make([]domain.InvoiceItem, 0, len(in))
	for i, it := range in {
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			return nil, fmt.Errorf("item %d: description required: %w", i+1, domain.ErrValidation)
		}
		if it.Quantity < 0 || it.UnitPrice < 0 {
			return nil, fmt.Errorf("item %d: quantity and unit price must not be negative: %w", i+1, domain.ErrValidation)
		}
		items = append(items, domain.InvoiceItem{Description: desc, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return items, nil
}

func validateTravel(gender domain.Gender, visa domain.VisaStatus, roomType domain.RoomType) error {
	if !gender.Valid() {
		return fmt.Errorf("gender %q: %w", gender, domain.ErrValidation)
	}
	if !visa.Valid() {
		return fmt.Errorf("visa status %q: %w", visa, domain.ErrValidation)
	}
	if roomType != "" && !roomType.Valid() {
		return fmt.Errorf("room type %q: %w", roomType, domain.ErrValidation)
	}
	return nil
}

func (s *Service) invoiceNumber() string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return calc.InvoiceNumber(s.now(), s.rand)
}

// Create issues a new invoice for the acting agent.
func (s *Service) Create(ctx context.Context, actor domain.Agent, in Input) (*domain.Invoice, error) {
	if in.Client.ID == "" && strings.TrimSpace(in.Client.Name) == "" {
		return nil, fmt.Errorf("client name or id required: %w", domain.ErrValidation)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("at least one item required: %w", domain.ErrValidation)
	}
	items, err := toItems(in.Items)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = domain.StatusDraft
	}
	if in.Status != domain.StatusDraft && in.Status != domain.StatusSent {
		return nil, fmt.Errorf("new invoices start as draft or sent, not %q: %w", in.Status, domain.ErrValidation)
	}
	if err := validateTravel(in.Gender, in.VisaStatus, in.RoomType); err != nil {
		return nil, err
	}

	client, err := s.resolveClient(ctx, in)
	if err != nil {
		return nil, err
	}

	totals := calc.Totals(items, s.taxRate)
	number := strings.TrimSpace(in.InvoiceNumber)
	if number == "" {
		number = s.invoiceNumber()
	}

	created, err := s.repo.Create(ctx, domain.Invoice{
		InvoiceNumber:  number,
		ClientID:       client.ID,
		AgentID:        actor.ID,
		AgentName:      actor.Name,
		Items:          items,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		Total:          totals.Total,
		Status:         in.Status,
		DueDate:        in.DueDate,
		Notes:          in.Notes,
		PassportNumber: in.PassportNumber,
		Gender:         in.Gender,
		FlightNumber:   in.FlightNumber,
		RoomType:       in.RoomType,
		VisaStatus:     in.VisaStatus,
		DepartureDate:  in.DepartureDate,
		DateOfBirth:    in.DateOfBirth,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice created",
		zap.String("invoice", created.ID), zap.String("number", created.InvoiceNumber),
		zap.String("agent", actor.ID), zap.Float64("total", created.Total))
	return created, nil
}

// resolveClient creates the invoice's client when it has no id, or copies
// the travel fields onto the existing one.
func (s *Service) resolveClient(ctx context.Context, in Input) (*domain.Client, error) {
	if in.Client.ID == "" {
		c := in.Client
		if c.PassportNumber == "" {
			c.PassportNumber = in.PassportNumber
		}
		if c.Gender == "" {
			c.Gender = in.Gender
		}
		if c.DateOfBirth == "" {
			c.DateOfBirth = in.DateOfBirth
		}
		return s.clients.Create(ctx, c)
	}

	existing, err := s.clients.Get(ctx, in.Client.ID)
	if err != nil {
		return nil, err
	}
	return s.syncClient(ctx, *existing, in.PassportNumber, in.Gender, in.DateOfBirth)
}

func (s *Service) syncClient(ctx context.Context, c domain.Client, passport string, gender domain.Gender, dob string) (*domain.Client, error) {
	var p domain.ClientPatch
	if passport != "" && passport != c.PassportNumber {
		p.PassportNumber = &passport
	}
	if gender != "" && gender != c.Gender {
		p.Gender = &gender
	}
	if dob != "" && dob != c.DateOfBirth {
		p.DateOfBirth = &dob
	}
	if p.Empty() {
		return &c, nil
	}
	return s.clients.Update(ctx, c.ID, p)
}

// visible returns the invoices the actor may see.
func (s *Service) visible(ctx context.Context, actor domain.Agent) ([]domain.Invoice, error) {
	if actor.IsDirector() {
		return s.repo.List(ctx, "")
	}
	return s.repo.List(ctx, actor.ID)
}

// owned fetches an invoice the actor may act on.
func (s *Service) owned(ctx context.Context, actor domain.Agent, id string) (*domain.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsDirector() && inv.AgentID != actor.ID {
		return nil, fmt.Errorf("invoice %s belongs to another agent: %w", id, domain.ErrForbidden)
	}
	return inv, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Agent, id string) (*domain.Invoice, error) {
	return s.owned(ctx, actor, id)
}

// Update applies a partial edit. New items recompute the totals; a new
// status must be a legal transition.
func (s *Service) Update(ctx context.Context, actor domain.Agent, id string, p domain.InvoicePatch) (*domain.Invoice, error) {
	current, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if p.Status != nil {
		if *p.Status == current.Status {
			p.Status = nil
		} else if !domain.CanTransition(current.Status, *p.Status) {
			return nil, fmt.Errorf("invoice %s: %s to %s: %w", id, current.Status, *p.Status, domain.ErrInvalidTransition)
		} else {
			p.ExpectStatus = &current.Status
		}
	}
	next := p.Apply(*current)
	if err := validateTravel(next.Gender, next.VisaStatus, next.RoomType); err != nil {
		return nil, err
	}

	p.Subtotal, p.Tax, p.Total = nil, nil, nil
	if p.Items != nil {
		in := make([]ItemInput, 0, len(p.Items))
		for _, it := range p.Items {
			in = append(in, ItemInput{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
		}
		items, err := toItems(in)
		if err != nil {
			return nil, err
		}
		totals := calc.Totals(items, s.taxRate)
		p.Items = items
		p.Subtotal, p.Tax, p.Total = &totals.Subtotal, &totals.Tax, &totals.Total
	}

	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}

	if updated.ClientID != "" && (p.PassportNumber != nil || p.Gender != nil || p.DateOfBirth != nil) {
		c, err := s.clients.Get(ctx, updated.ClientID)
		if err == nil {
			c, err = s.syncClient(ctx, *c, updated.PassportNumber, updated.Gender, updated.DateOfBirth)
		}
		if err != nil {
			s.logger.Warn("invoice: client sync failed", zap.String("invoice", id), zap.Error(err))
		} else {
			updated.Client = c
		}
	}
	return updated, nil
}

// UpdateStatus moves the invoice along the status graph. Totals and items
// are left alone.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Agent, id string, status domain.InvoiceStatus) (*domain.Invoice, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, domain.ErrValidation)
	}
	current, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, status) {
		return nil, fmt.Errorf("invoice %s: %s to %s: %w", id, current.Status, status, domain.ErrInvalidTransition)
	}
	updated, err := s.repo.Update(ctx, id, domain.InvoicePatch{Status: &status, ExpectStatus: &current.Status})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice status changed",
		zap.String("invoice", id), zap.String("from", string(current.Status)), zap.String("to", string(status)))
	return updated, nil
}

// Delete removes the invoice, and its client when no other invoice names them.
func (s *Service) Delete(ctx context.Context, actor domain.Agent, id string) error {
	inv, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("invoice deleted", zap.String("invoice", id), zap.String("agent", actor.ID))

	if inv.ClientID == "" {
		return nil
	}
	n, err := s.repo.CountByClient(ctx, inv.ClientID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := s.clients.Delete(ctx, inv.ClientID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete client of invoice %s: %w", id, err)
	}
	return nil
}

// List returns the visible invoices matching f. Agents only ever see their own.
func (s *Service) List(ctx context.Context, actor domain.Agent, f calc.InvoiceFilter) (*ListResult, error) {
	all, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsDirector() {
		f.AgentID = ""
	}
	filtered := calc.FilterInvoices(all, f)
	return &ListResult{Invoices: filtered, Summary: calc.Summarize(filtered)}, nil
}

func (s *Service) Dashboard(ctx context.Context, actor domain.Agent) (*calc.DashboardStats, error) {
	all, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	stats := calc.Stats(all)
	return &stats, nil
}

// Today lists the visible invoices created on today's date.
func (s *Service) Today(ctx context.Context, actor domain.Agent) ([]domain.Invoice, error) {
	all, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	return calc.TodaysInvoices(all, s.now()), nil
}

// AgentPerformance is the director's per-agent table.
func (s *Service) AgentPerformance(ctx context.Context, actor domain.Agent) ([]calc.AgentStats, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("agent performance is for directors: %w", domain.ErrForbidden)
	}
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return calc.AgentPerformance(agents, all, s.now()), nil
}
