// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package console implements the console-session engine of a Benchwire
// bench agent: exclusive ownership of a byte-oriented device console
// (serial line, network console server), continuous draining of it on a
// background goroutine, line framing with optional elapsed-time
// markers, a bounded recent-history buffer, and synchronous
// "send a command, wait for its prompt" semantics on top of the
// inherently asynchronous stream.
//
// The package is organized around the receive data flow:
//
//   - linebuffer.go: bounded line history plus the unterminated pending tail
//   - annotate.go: elapsed-time markers injected after each line terminator
//   - publish.go: live tee of every received chunk to an observer sink
//   - session.go: the aggregate, its lock discipline, and the prompt handshake
//   - reader.go: the background read loop and its bounded-retry recovery
//   - escape.go: C-style escape interpretation for outbound writes
//
// One mutex and one condition variable serialize all buffer and prompt
// state; Session.Run parks on the condition variable until the device
// produces a matching prompt. There is deliberately no timeout or
// cancellation in that handshake: a device that never prints its prompt
// blocks the caller until the session dies. The surrounding agent is
// expected to pair Run with its own watchdog when that matters.
package console
