package order

import "time"

type Status string

const (
	// StatusPending is the initial state; orders stay pending until the
	// session's payment is confirmed.
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// StatusFilter selects which orders a listing returns. The aggregation
// itself never filters; callers pick the slice they need.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterPending   StatusFilter = "pending"
	FilterCompleted StatusFilter = "completed"
)

// Order is one ordering event within a session. TotalCost is the sum of
// its line items at creation time and never changes afterwards.
type Order struct {
	ID        int64
	SessionID int64
	UserID    int64
	OrderTime time.Time
	Status    Status
	TotalCost int
	Items     []Item
}

// Item snapshots the menu unit price at order time, so later menu price
// changes never touch a placed order.
type Item struct {
	ID         int64
	OrderID    int64
	MenuItemID int64
	Quantity   int
	Price      int
}

// Subtotal folds order totals into a single amount. It applies no status
// filter of its own and an empty slice sums to zero.
func Subtotal(orders []*Order) int {
	total := 0
	for _, o := range orders {
		total += o.TotalCost
	}
	return total
}
