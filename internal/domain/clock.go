package domain

import "time"

// Clock supplies the current time for end-time gating. The ledger evaluates
// time-based eligibility synchronously at the moment of each call; injecting
// the clock keeps that evaluation deterministic under test.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// RealClock returns a Clock backed by time.Now.
func RealClock() Clock {
	return ClockFunc(time.Now)
}
