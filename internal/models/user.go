package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the actor role tag checked at every workflow entry point.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleRunner   Role = "runner"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleRunner, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor is the authenticated identity carried through request context.
// Workflow operations gate on its role rather than ad hoc boolean flags.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}
