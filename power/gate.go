// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package power tracks the target device's power state and gates
// console I/O on it.
package power

import (
	"sync"

	"github.com/benchwire/benchwire/console"
)

// Compile-time interface check.
var _ console.PowerController = (*Gate)(nil)

// Gate is a settable power latch. Wait blocks while the device is off
// and returns immediately while it is on; Set flips the state from
// whatever component drives the device's power (a PDU client, a USB
// relay, an operator command).
type Gate struct {
	mu    sync.Mutex
	ready *sync.Cond
	on    bool
}

// NewGate creates a gate in the powered-off state.
func NewGate() *Gate {
	gate := &Gate{}
	gate.ready = sync.NewCond(&gate.mu)
	return gate
}

// Set records the device's power state and releases every waiter when
// it turns on.
func (g *Gate) Set(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.on = on
	if on {
		g.ready.Broadcast()
	}
}

// On reports the current power state.
func (g *Gate) On() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.on
}

// Wait blocks until the device is powered on. It returns immediately if
// it already is. There is no timeout and no cancellation.
func (g *Gate) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for !g.on {
		g.ready.Wait()
	}
}
