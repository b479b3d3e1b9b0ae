// Package receipt assembles a finalized session and its orders into the
// structure the checkout and success views render.
package receipt

import (
	"fmt"
	"time"

	"timecafe-be/internal/order"
	"timecafe-be/internal/pricing"
	"timecafe-be/internal/session"
)

type Receipt struct {
	SessionID     int64      `json:"session_id"`
	TimeCost      int        `json:"time_cost"`
	OrderSubtotal int        `json:"order_subtotal"`
	Total         int        `json:"total"`
	CheckInTime   time.Time  `json:"check_in_time"`
	CheckOutTime  *time.Time `json:"check_out_time,omitempty"`

	// Estimated marks a receipt built against a still-active session:
	// the time cost is a projection to now, not a stored charge.
	Estimated bool `json:"estimated"`

	DurationFormatted string `json:"duration_formatted"`
}

// Build derives a receipt. For a completed session the time cost comes
// out of the stored total subtractively: the stored TotalCost is the
// authoritative historical charge, and recomputing it would drift if the
// pricing rules ever change. The order subtotal is expected to cover
// completed orders only; the caller picks that slice.
func Build(s *session.Session, completedOrders []*order.Order, now time.Time) *Receipt {
	subtotal := order.Subtotal(completedOrders)

	r := &Receipt{
		SessionID:     s.ID,
		OrderSubtotal: subtotal,
		CheckInTime:   s.CheckInTime,
		CheckOutTime:  s.CheckOutTime,
	}

	if s.TotalCost != nil {
		r.TimeCost = *s.TotalCost - subtotal
		r.Total = *s.TotalCost
	} else {
		// Session still open: project the charge to now instead of
		// failing the view.
		elapsed := int(now.Sub(s.CheckInTime) / time.Second)
		r.TimeCost = pricing.ComputeTimeCost(elapsed)
		r.Total = r.TimeCost + subtotal
		r.Estimated = true
	}

	r.DurationFormatted = formatDuration(s, now)
	return r
}

func formatDuration(s *session.Session, now time.Time) string {
	var seconds int
	switch {
	case s.TotalTime != nil:
		seconds = *s.TotalTime
	case !s.CheckInTime.IsZero():
		seconds = int(now.Sub(s.CheckInTime) / time.Second)
	}
	if seconds < 0 {
		seconds = 0
	}

	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
