package locations

import (
	"errors"
	"time"
)

// Location is a physical stock holding point.
type Location struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput describes a new location.
type CreateInput struct {
	Code        string
	Name        string
	Description string
}

// UpdateInput replaces the mutable fields.
type UpdateInput struct {
	Name        string
	Description string
	Active      bool
}

// ErrDuplicateCode signals a code collision.
var ErrDuplicateCode = errors.New("location code already exists")
