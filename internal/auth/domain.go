package auth

import (
	"errors"
	"time"
)

// Known roles. Admins manage master data and budgets; managers approve and
// fulfill requests; staff create requests and adjustments.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// User is an account row. PasswordHash never leaves the package.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	LocationID   *int64    `json:"location_id,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a minted bearer token bound to a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// deactivated accounts without distinguishing them.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired signals a missing or expired bearer token.
	ErrTokenExpired = errors.New("token missing or expired")
)
