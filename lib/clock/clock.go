// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source used by components that compute elapsed
// durations. Every production function that would call time.Now or
// time.Sleep should take a Clock (or sit on a struct with a Clock
// field) instead of reaching for the time package directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses the calling goroutine for at least duration d.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the system clock.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
