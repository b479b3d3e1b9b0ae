package order

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another user")

	// ErrNoActiveSession and ErrSessionEnded are distinct on purpose:
	// "you have no open session" and "your session has already ended"
	// need different user messaging.
	ErrNoActiveSession = errors.New("no active session to order against")
	ErrSessionEnded    = errors.New("session has already ended")

	ErrEmptyOrder      = errors.New("order has no items")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)
