package user

import "time"

type User struct {
	ID               int64
	Username         string
	PasswordHash     string
	FullName         string
	Email            string
	PhoneNumber      *string
	DateOfBirth      *string // YYYY-MM-DD, used for birthday coupons
	StripeCustomerID *string
	RegisteredAt     time.Time
}
