// Package clock abstracts time so billing logic is testable against
// fixed instants.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the wall clock, in UTC.
func System() Clock { return systemClock{} }

type fixedClock struct {
	t time.Time
}

func (f fixedClock) Now() time.Time { return f.t }

// Fixed returns a clock frozen at t, for tests.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }
