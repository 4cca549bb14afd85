package service

import "time"

// Clock supplies the current instant. The token manager takes one so expiry
// logic is deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the UTC wall clock.
func SystemClock() Clock { return systemClock{} }
