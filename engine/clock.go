package engine

import (
	"sync"
	"time"
)

// Clock is the simulated time source shared by the token and the staking
// engine.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewClock creates a clock reading start.
func NewClock(start time.Time) *Clock { return &Clock{now: start} }

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
