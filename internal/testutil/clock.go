package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a wall clock for tests that starts at a fixed instant
// and advances by a fixed step on every call to Now.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	next  time.Time
}

// Epoch is the default start of DeterministicClock.
var Epoch = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

// NewDeterministicClock creates a clock starting at start. A zero start uses
// Epoch. The first call to Now returns start.
func NewDeterministicClock(start time.Time, step time.Duration) *DeterministicClock {
	if start.IsZero() {
		start = Epoch
	}
	return &DeterministicClock{start: start, step: step, next: start}
}

// Now returns the current instant and advances the clock by step.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Peek returns the instant the next call to Now will return.
func (c *DeterministicClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.start
}
