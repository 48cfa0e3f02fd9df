// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"errors"
	"io"
	"log/slog"
	"sync"
)

// errTransportClosed is what the fakes return for operations on a
// closed transport.
var errTransportClosed = errors.New("console transport is closed")

// quietLogger discards log output so recovery-path tests do not spam
// the test log.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedTransport simulates a device console. Reads block until a
// response chunk is fed; writes are recorded and can trigger scripted
// response chunks, emulating a device that answers commands.
type scriptedTransport struct {
	mu     sync.Mutex
	open   bool
	quit   chan struct{} // closed on Close to unblock reads
	opens  int
	closes int
	writes [][]byte

	// script maps an exact write payload to response chunks delivered
	// one per read.
	script map[string][]string

	feed chan []byte
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		script: make(map[string][]string),
		feed:   make(chan []byte, 64),
	}
}

// respondTo registers response chunks for an exact write payload.
func (t *scriptedTransport) respondTo(write string, chunks ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script[write] = chunks
}

// respond feeds chunks to the reader directly, as if the device had
// printed spontaneously.
func (t *scriptedTransport) respond(chunks ...string) {
	for _, chunk := range chunks {
		t.feed <- []byte(chunk)
	}
}

func (t *scriptedTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opens++
	t.open = true
	t.quit = make(chan struct{})
	return nil
}

func (t *scriptedTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open {
		t.open = false
		close(t.quit)
		t.closes++
	}
	return nil
}

func (t *scriptedTransport) Read(max int) ([]byte, error) {
	t.mu.Lock()
	open, quit := t.open, t.quit
	t.mu.Unlock()
	if !open {
		return nil, errTransportClosed
	}
	select {
	case data := <-t.feed:
		return data, nil
	case <-quit:
		return nil, errTransportClosed
	}
}

func (t *scriptedTransport) Pending() int { return 0 }

func (t *scriptedTransport) Write(data []byte) error {
	t.mu.Lock()
	t.writes = append(t.writes, append([]byte(nil), data...))
	chunks := t.script[string(data)]
	t.mu.Unlock()
	for _, chunk := range chunks {
		t.feed <- []byte(chunk)
	}
	return nil
}

func (t *scriptedTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

func (t *scriptedTransport) writeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.writes)
}

func (t *scriptedTransport) lastWrite() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.writes) == 0 {
		return nil
	}
	return t.writes[len(t.writes)-1]
}

// faultTransport fails every read, and fails every open after the
// first. It drives the recovery loop to budget exhaustion.
type faultTransport struct {
	mu    sync.Mutex
	opens int
	reads int
}

func (t *faultTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opens++
	if t.opens > 1 {
		return errors.New("device went away")
	}
	return nil
}

func (t *faultTransport) Close() error { return nil }

func (t *faultTransport) Read(max int) ([]byte, error) {
	t.mu.Lock()
	t.reads++
	t.mu.Unlock()
	return nil, errors.New("read fault")
}

func (t *faultTransport) Pending() int { return 0 }

func (t *faultTransport) Write(data []byte) error { return nil }

func (t *faultTransport) counts() (opens, reads int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens, t.reads
}

// idleSession builds a session around a scripted transport without
// starting the read loop, for tests that drive ingest directly.
func idleSession(overrides func(*Config)) (*Session, *scriptedTransport) {
	transport := newScriptedTransport()
	config := Config{
		Transport:   transport,
		Passthrough: io.Discard,
		Logger:      quietLogger(),
	}
	if overrides != nil {
		overrides(&config)
	}
	session, err := New(config)
	if err != nil {
		panic("idleSession: " + err.Error())
	}
	return session, transport
}
