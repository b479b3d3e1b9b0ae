package payment

import "errors"

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrNotPaymentOwner     = errors.New("payment belongs to another user")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNotSessionOwner     = errors.New("session belongs to another user")
	ErrSessionNotCompleted = errors.New("session is not completed")
	ErrNoPaymentMethod     = errors.New("user has no payment method set up")

	// ErrChargeNotSettled rejects a confirmation whose provider-side
	// charge has not actually succeeded yet.
	ErrChargeNotSettled = errors.New("charge is not settled")
)
