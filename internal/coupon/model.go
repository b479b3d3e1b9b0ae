package coupon

import "time"

type Type string

const (
	TypeBirthday Type = "birthday"
	TypeLoyalty  Type = "loyalty"
)

// Coupon grants free time, measured in hours, against a future visit.
type Coupon struct {
	ID         int64
	UserID     int64
	Type       Type
	Code       string
	Value      int // free hours
	ExpiryDate time.Time
	IsUsed     bool
	CreatedAt  time.Time
}
