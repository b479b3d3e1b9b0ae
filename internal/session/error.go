package session

import "errors"

var (
	// ErrActiveSessionExists rejects a check-in while the user already has
	// an open session.
	ErrActiveSessionExists = errors.New("user already has an active session")

	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another user")

	// ErrSessionNotActive rejects a check-out against a completed session,
	// including the loser of two concurrent check-outs.
	ErrSessionNotActive = errors.New("session is not active")

	// ErrCorruptCheckIn aborts a check-out whose stored check-in time is
	// unusable. Rejecting beats silently billing zero.
	ErrCorruptCheckIn = errors.New("session check-in time is corrupt")
)
