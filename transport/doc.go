// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the byte-oriented console transports a
// session can own: a local serial port configured for raw 8N1 I/O, and
// a TCP client for network-attached console servers.
//
// Both types satisfy console.Transport. They hold no buffering of their
// own — framing, history, and recovery all live in the console package;
// a transport only moves bytes and reports faults.
package transport
