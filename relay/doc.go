// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay exports a device's console stream to network observers.
// The relay tees every chunk the session ingests into a byte ring
// buffer and fans it out to connected observers, so multiple operators
// can watch a board's console live while the session keeps exclusive
// ownership of the transport.
//
// The package is organized around the observation data flow:
//
//   - protocol.go: wire format for the observer stream (framed binary messages)
//   - ringbuffer.go: byte ring buffer with sequence offsets for reconnect gap-fill
//   - relay.go: listener, observer registry, and the console.Sink tee
package relay
