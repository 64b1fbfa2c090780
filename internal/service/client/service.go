package client

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
	clientrepo "umrah-backoffice/internal/repository/client"
)

// roomingCache is the part of the rooming manager that must hear about
// client changes.
type roomingCache interface {
	RemoveClientFromRoom(ctx context.Context, clientID string, city domain.City) error
	Refresh(ctx context.Context) error
}

type Service struct {
	repo    clientrepo.Repository
	rooming roomingCache
	logger  *zap.Logger
}

// New returns a client Service. rooming may be nil.
func New(repo clientrepo.Repository, rooming roomingCache, logger *zap.Logger) *Service {
	return &Service{repo: repo, rooming: rooming, logger: logging.OrNop(logger)}
}

// List returns every client, or those whose name, email, phone or passport
// number contains query (case-insensitive).
func (s *Service) List(ctx context.Context, query string) ([]domain.Client, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	out := make([]domain.Client, 0)
	for _, c := range all {
		for _, field := range []string{c.Name, c.Email, c.Phone, c.PassportNumber} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Client, error) {
	return s.repo.GetByID(ctx, id)
}

func normalize(c domain.Client) (domain.Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if c.Name == "" {
		return c, fmt.Errorf("client name required: %w", domain.ErrValidation)
	}
	if !c.Gender.Valid() {
		return c, fmt.Errorf("gender %q: %w", c.Gender, domain.ErrValidation)
	}
	if c.Email == "" {
		c.Email = domain.PlaceholderEmail(c.Name)
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, in domain.Client) (*domain.Client, error) {
	c, err := normalize(in)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	s.logger.Info("client created", zap.String("client", created.ID))
	s.sync(ctx)
	return created, nil
}

// BulkCreate validates every client before writing any; the batch commits
// whole or not at all.
func (s *Service) BulkCreate(ctx context.Context, in []domain.Client) ([]domain.Client, error) {
	batch := make([]domain.Client, 0, len(in))
	for i, c := range in {
		n, err := normalize(c)
		if err != nil {
			return nil, fmt.Errorf("client %d: %w", i+1, err)
		}
		batch = append(batch, n)
	}
	if len(batch) == 0 {
		return []domain.Client{}, nil
	}
	created, err := s.repo.BulkCreate(ctx, batch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("clients created", zap.Int("count", len(created)))
	s.sync(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, p domain.ClientPatch) (*domain.Client, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("client name required: %w", domain.ErrValidation)
		}
		p.Name = &name
	}
	if p.Gender != nil && !p.Gender.Valid() {
		return nil, fmt.Errorf("gender %q: %w", *p.Gender, domain.ErrValidation)
	}
	if p.Empty() {
		return s.repo.GetByID(ctx, id)
	}
	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.sync(ctx)
	return updated, nil
}

// Delete removes the client's room assignments, then the client.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if s.rooming != nil {
		if err := s.rooming.RemoveClientFromRoom(ctx, id, ""); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("client deleted", zap.String("client", id))
	s.sync(ctx)
	return nil
}

// sync reloads the rooming cache so unassigned-client lists see the change.
func (s *Service) sync(ctx context.Context) {
	if s.rooming == nil {
		return
	}
	if err := s.rooming.Refresh(ctx); err != nil {
		s.logger.Warn("client: rooming refresh failed", zap.Error(err))
	}
}
