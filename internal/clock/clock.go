// Package clock provides the time source used by the booking core.  Hold
// expiry is stored as data, so every component that compares against it
// reads "now" from the same Clock.
package clock

import (
    "sync"
    "time"
)

// Clock returns the current time.
type Clock interface {
    Now() time.Time
}

// System is the wall clock, always in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a Clock that only moves when told to.  Safe for concurrent use.
type Manual struct {
    mu  sync.Mutex
    now time.Time
}

// NewManual returns a Manual clock set to t.
func NewManual(t time.Time) *Manual { return &Manual{now: t.UTC()} }

func (m *Manual) Now() time.Time {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
    m.mu.Lock()
    m.now = m.now.Add(d)
    m.mu.Unlock()
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
    m.mu.Lock()
    m.now = t.UTC()
    m.mu.Unlock()
}
