package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the wall time ManualClock starts at when none is given.
var DefaultEpoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a wall clock that only moves when told to.
//
// Hosts take a func() time.Time; pass clock.Now so the same scenario run
// twice stamps every call identically.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading start. A zero start uses DefaultEpoch.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t. Moving backwards is allowed; tests use it to
// check mint period boundaries.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Reset returns the clock to DefaultEpoch.
func (c *ManualClock) Reset() {
	c.Set(DefaultEpoch)
}
