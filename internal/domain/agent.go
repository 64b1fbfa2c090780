package domain

import "time"

// Role is a staff permission level.
type Role string

const (
	RoleAgent    Role = "agent"
	RoleDirector Role = "director"
)

func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleDirector
}

// Agent is a staff account. Directors see every agent's invoices.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Department   string    `json:"department,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a Agent) IsDirector() bool {
	return a.Role == RoleDirector
}
