// Package user defines operator accounts for the admin console.
package user

import "time"

// Role grants capabilities on admin routes.
type Role string

// RoleAdmin is the only role the storefront recognises.
const RoleAdmin Role = "ADMIN"

// User is an operator account. PasswordHash is a bcrypt digest and is never
// serialised.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the account may call operator-only endpoints.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin && u.Active
}
