package models

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what a user is allowed to do beyond their own resources.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a registered user
type User struct {
	ID           uuid.UUID `json:"id"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not serialized
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated identity performing an operation. Every
// service operation takes it as an explicit parameter; nothing reads it from
// ambient state.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the principal holds the privileged role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
