package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"umrah-backoffice/internal/domain"
)

// Verifier checks staff credentials.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (*domain.Agent, error)
}

type agentFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
}

// RepositoryVerifier checks passwords against the bcrypt hashes stored with agents.
type RepositoryVerifier struct {
	agents agentFinder
}

func NewRepositoryVerifier(agents agentFinder) *RepositoryVerifier {
	return &RepositoryVerifier{agents: agents}
}

func (v *RepositoryVerifier) Verify(ctx context.Context, email, password string) (*domain.Agent, error) {
	a, err := v.agents.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown email: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := checkPassword(a.PasswordHash, password); err != nil {
		return nil, err
	}
	return a, nil
}

// Account seeds a MemoryVerifier.
type Account struct {
	Agent    domain.Agent
	Password string
}

// MemoryVerifier holds accounts in process, keyed by lowercased email.
type MemoryVerifier struct {
	accounts map[string]domain.Agent
}

// NewMemoryVerifier hashes every password up front with the minimum bcrypt cost.
func NewMemoryVerifier(accounts []Account) (*MemoryVerifier, error) {
	v := &MemoryVerifier{accounts: make(map[string]domain.Agent, len(accounts))}
	for _, acc := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", acc.Agent.Email, err)
		}
		a := acc.Agent
		a.PasswordHash = string(hash)
		v.accounts[strings.ToLower(a.Email)] = a
	}
	return v, nil
}

func (v *MemoryVerifier) Verify(_ context.Context, email, password string) (*domain.Agent, error) {
	a, ok := v.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("unknown email: %w", domain.ErrUnauthorized)
	}
	if err := checkPassword(a.PasswordHash, password); err != nil {
		return nil, err
	}
	return &a, nil
}

func checkPassword(hash, password string) error {
	if hash == "" {
		return fmt.Errorf("account has no password: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("wrong password: %w", domain.ErrUnauthorized)
	}
	return nil
}

// HashPassword returns the bcrypt hash stored for an agent.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
