// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.advanced = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for testing. Now returns a fixed
// time that moves only when Advance is called. Sleep blocks until the
// clock has been advanced past the sleep deadline.
type FakeClock struct {
	mu       sync.Mutex
	current  time.Time
	advanced *sync.Cond
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Sleep blocks until Advance has moved the clock at least d past the
// time at which Sleep was called. If d <= 0, returns immediately.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := c.current.Add(d)
	for c.current.Before(deadline) {
		c.advanced.Wait()
	}
}

// Advance moves the clock forward by d and wakes any pending sleeps
// whose deadlines fall within the new time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	c.advanced.Broadcast()
}
