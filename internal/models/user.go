package models

import (
	"fmt"
	"time"
)

// Role is the closed set of account categories.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

// Roles lists every valid role.
var Roles = []Role{RoleCustomer, RoleSeller}

// ParseRole converts a wire value into a Role, rejecting anything outside
// the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleSeller:
		return Role(s), nil
	}
	return "", fmt.Errorf("%q is not a valid role", s)
}

func (r Role) String() string { return string(r) }

// User represents an account in the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	Role         Role      `json:"user_type"`
	CreatedAt    time.Time `json:"-"`
}

// RefreshToken is a server-side record of an issued refresh token.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}
