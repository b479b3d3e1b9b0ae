package session

import "time"

type Status string

const (
	// StatusActive is the initial state, entered by check-in.
	StatusActive Status = "active"
	// StatusCompleted is terminal, entered by check-out. Never reversed.
	StatusCompleted Status = "completed"
)

// Session is one customer visit. CheckInTime is set once at creation and
// never mutated; the terminal fields stay nil until check-out fills them
// exactly once. Timestamps are UTC inside the core.
type Session struct {
	ID          int64
	UserID      int64
	TableNumber *string
	CheckInTime time.Time
	Status      Status

	// Terminal fields, nil while the session is active.
	CheckOutTime *time.Time
	TotalTime    *int // elapsed seconds between check-in and check-out
	TotalCost    *int // time cost plus order subtotal, in yen
}

func (s *Session) IsActive() bool {
	return s.Status == StatusActive && s.CheckOutTime == nil
}
