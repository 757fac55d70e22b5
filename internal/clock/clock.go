// Package clock provides the monotonic time source used by all timing logic.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant. Implementations must be safe for
// concurrent use and must never report an instant earlier than a previous one.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the process wall clock. The time.Time values it produces
// carry Go's monotonic reading, so elapsed arithmetic on them never goes
// backward even across wall-clock adjustments.
func System() Clock { return systemClock{} }

// Fake is a manually advanced clock for deterministic tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set moves the clock to a specific instant.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
