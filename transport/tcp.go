// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benchwire/benchwire/console"
)

// Compile-time interface check.
var _ console.Transport = (*TCP)(nil)

// dialTimeout bounds how long Open waits for the console server to
// accept the connection.
const dialTimeout = 10 * time.Second

// TCP is a console transport backed by a TCP connection to a network
// console server (a terminal server, or another machine exporting a
// device's serial port).
type TCP struct {
	address string

	mu   sync.Mutex
	conn net.Conn
}

// NewTCP creates a TCP transport for the given "host:port" address. No
// connection is made until Open.
func NewTCP(address string) *TCP {
	return &TCP{address: address}
}

// Open dials the console server. Opening an already open transport is a
// no-op.
func (t *TCP) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", t.address, dialTimeout)
	if err != nil {
		return fmt.Errorf("dialing console server %s: %w", t.address, err)
	}
	t.conn = conn
	return nil
}

// Close closes the connection, failing any read in flight.
func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Read returns up to max bytes, blocking until at least one byte is
// available.
func (t *TCP) Read(max int) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil, errNotOpen
	}
	if max < 1 {
		max = 1
	}

	data := make([]byte, max)
	n, err := conn.Read(data)
	if n > 0 {
		// Deliver what arrived; an error alongside it surfaces on the
		// next read.
		return data[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// Pending always reports zero: the socket cannot cheaply be asked how
// much is queued, so the session falls back to single-byte reads.
func (t *TCP) Pending() int { return 0 }

// Write sends data to the console server.
func (t *TCP) Write(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return errNotOpen
	}
	_, err := conn.Write(data)
	return err
}
