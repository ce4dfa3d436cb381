package resolver

import "time"

// Clock supplies the wall-clock time used by date/time placeholders.
// Production code uses the system clock; tests pin a fixed instant so
// resolving the same snippet twice yields identical output.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock always reports the same instant.
type FixedClock struct {
	Instant time.Time
}

func (f FixedClock) Now() time.Time { return f.Instant }
