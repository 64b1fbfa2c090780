// Package auth signs staff in and manages their accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
)

const issuer = "umrah-backoffice"

const minPasswordLength = 8

type agentStore interface {
	List(ctx context.Context) ([]domain.Agent, error)
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	Create(ctx context.Context, a domain.Agent) (*domain.Agent, error)
	Delete(ctx context.Context, id string) error
}

// Claims is the token payload.
type Claims struct {
	AgentID string      `json:"agentId"`
	Name    string      `json:"name"`
	Role    domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Options struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
	Logger *zap.Logger
}

type Service struct {
	verifier Verifier
	agents   agentStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// New fails without a signing secret.
func New(verifier Verifier, agents agentStore, opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("auth: JWT secret is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		verifier: verifier,
		agents:   agents,
		secret:   []byte(opts.Secret),
		ttl:      opts.TTL,
		now:      opts.Now,
		logger:   logging.OrNop(opts.Logger),
	}, nil
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Agent     domain.Agent `json:"agent"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	a, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.logger.Info("auth: login rejected", zap.String("email", email))
		}
		return nil, err
	}

	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		AgentID: a.ID,
		Name:    a.Name,
		Role:    a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	s.logger.Info("auth: login", zap.String("agent", a.ID), zap.String("role", string(a.Role)))
	return &Session{Token: token, ExpiresAt: exp.UTC(), Agent: *a}, nil
}

// Parse validates a token and returns the agent it was issued to.
func (s *Service) Parse(token string) (*domain.Agent, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	if !parsed.Valid || claims.AgentID == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	return &domain.Agent{ID: claims.AgentID, Name: claims.Name, Role: claims.Role}, nil
}

func requireDirector(actor domain.Agent) error {
	if !actor.IsDirector() {
		return fmt.Errorf("agent management is for directors: %w", domain.ErrForbidden)
	}
	return nil
}

func (s *Service) ListAgents(ctx context.Context, actor domain.Agent) ([]domain.Agent, error) {
	if err := requireDirector(actor); err != nil {
		return nil, err
	}
	return s.agents.List(ctx)
}

// NewAgent is the input for CreateAgent. Role defaults to agent.
type NewAgent struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Role       domain.Role `json:"role,omitempty"`
	Department string      `json:"department,omitempty"`
}

func (s *Service) CreateAgent(ctx context.Context, actor domain.Agent, in NewAgent) (*domain.Agent, error) {
	if err := requireDirector(actor); err != nil {
		return nil, err
	}
	return s.Register(ctx, in)
}

// Register creates an account without an acting director. Used by seeding.
func (s *Service) Register(ctx context.Context, in NewAgent) (*domain.Agent, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = domain.RoleAgent
	}
	if in.Name == "" {
		return nil, fmt.Errorf("agent name required: %w", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("agent email %q: %w", in.Email, domain.ErrValidation)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("role %q: %w", in.Role, domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("password shorter than %d characters: %w", minPasswordLength, domain.ErrValidation)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a, err := s.agents.Create(ctx, domain.Agent{
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		Department:   strings.TrimSpace(in.Department),
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("auth: agent created", zap.String("agent", a.ID), zap.String("role", string(a.Role)))
	return a, nil
}

func (s *Service) DeleteAgent(ctx context.Context, actor domain.Agent, id string) error {
	if err := requireDirector(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return fmt.Errorf("directors cannot delete their own account: %w", domain.ErrValidation)
	}
	if err := s.agents.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("auth: agent deleted", zap.String("agent", id))
	return nil
}
