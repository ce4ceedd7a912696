package security

import "time"

// Clock supplies the engine's notion of now. Expiry checks never read the
// system clock directly so grant validation stays deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}
