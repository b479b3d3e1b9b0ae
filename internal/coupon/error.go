package coupon

import "errors"

var (
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponSpent covers both an already-used coupon and a double
	// redemption race: the guarded update lets only one redeemer through.
	ErrCouponSpent = errors.New("coupon already used or expired")
)
