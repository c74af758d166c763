package domain

import "errors"

var (
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("access forbidden")
	ErrBookingNotFound    = errors.New("booking request not found")
	ErrInvalidTransition  = errors.New("invalid request status for this action")
	ErrInvalidAction      = errors.New("action must be one of: approve, reject")
	ErrRequestInProgress  = errors.New("a request with this Idempotency-Key is still in progress")
)
