package requests

import (
	"errors"
	"time"
)

// RequestStatus is the lifecycle state of an item request. Transitions are
// monotone: pending moves to approved or rejected, approved moves to
// fulfilled, and every other transition is rejected.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusFulfilled RequestStatus = "fulfilled"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFulfilled:
		return true
	}
	return false
}

// ItemRequest models a demand for stock at the requesting location. The
// source that satisfies it is chosen at fulfillment time, not at creation.
type ItemRequest struct {
	ID            int64         `json:"id"`
	ItemID        int64         `json:"item_id"`
	LocationID    int64         `json:"requesting_location_id"`
	Quantity      int64         `json:"quantity"`
	Priority      string        `json:"priority"`
	Reason        string        `json:"reason,omitempty"`
	Status        RequestStatus `json:"status"`
	RequestedBy   int64         `json:"requested_by"`
	RequestDate   time.Time     `json:"request_date"`
	ApprovedBy    *int64        `json:"approved_by,omitempty"`
	ApprovedDate  *time.Time    `json:"approved_date,omitempty"`
	FulfilledDate *time.Time    `json:"fulfilled_date,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PriorityNormal is assumed when a request does not state a priority.
const PriorityNormal = "normal"

// CreateRequestInput describes a new request.
type CreateRequestInput struct {
	ItemID      int64
	LocationID  int64
	Quantity    int64
	Priority    string
	Reason      string
	RequestedBy int64
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status     *RequestStatus
	LocationID *int64
}

var (
	// ErrInvalidState signals a transition the lifecycle does not allow.
	ErrInvalidState = errors.New("request is not in a state that allows this operation")
	// ErrValidation signals a malformed request payload.
	ErrValidation = errors.New("invalid request payload")
)
