package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller's role does not allow the action.
	ErrForbidden = errors.New("forbidden")
)
