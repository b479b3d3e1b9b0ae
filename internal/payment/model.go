package payment

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Payment is one settlement attempt against a completed session. Amount
// snapshots the session's total at creation; confirming never recomputes
// it.
type Payment struct {
	ID          int64
	SessionID   int64
	UserID      int64
	Amount      int
	ChargeRef   *string // opaque provider reference
	Status      Status
	Method      string
	PaymentTime time.Time
}

// ChargeResponse is what the charge collaborator hands back when an
// intent is created.
type ChargeResponse struct {
	ChargeID     string
	ClientSecret string
	Status       string
}

// ChargeStatus reports the provider-side state of a charge.
type ChargeStatus struct {
	Status string
	Paid   bool
}
