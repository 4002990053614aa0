// services/clock.go - Injected time source
package services

import "time"

// Clock supplies the current time to every service that does date math.
// Production uses the system clock (UTC); tests drive a fake so day
// rollovers are deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystemClock returns a Clock backed by the wall clock in UTC.
func NewSystemClock() Clock {
	return systemClock{}
}
