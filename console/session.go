// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/benchwire/benchwire/lib/clock"
)

// interruptByte is sent to the device to abort whatever it is doing and
// force a fresh prompt (ASCII ETX, the ^C the device-side shell sees).
const interruptByte = 0x03

// Transport is the byte-oriented console the session exclusively owns.
// Only the session opens or closes it; no other component may touch it
// while the session exists.
type Transport interface {
	Open() error
	Close() error

	// Read returns up to max bytes, blocking until at least one byte
	// is available. A failed read is a transport fault handled by the
	// session's recovery loop.
	Read(max int) ([]byte, error)

	// Pending reports how many bytes can be read without blocking.
	// Transports that cannot know return 0.
	Pending() int

	Write(data []byte) error
}

// PowerController gates console access on the device's power
// lifecycle. Wait blocks the calling goroutine until the device is
// powered and ready; it has no timeout and no failure signal.
type PowerController interface {
	Wait()
}

// Config assembles a Session. Transport is required; everything else
// has a usable default.
type Config struct {
	// Transport is the device console. Exclusively owned by the
	// session from construction on.
	Transport Transport

	// Prompt is the shell prompt the device emits when ready for a
	// command. Default: "=> ".
	Prompt string

	// Timestamps enables elapsed-time markers after every framed line.
	Timestamps bool

	// Sink receives a live copy of every ingested chunk. Optional;
	// when nil, chunks fall through to Passthrough.
	Sink Sink

	// Passthrough is the default destination for ingested chunks when
	// no Sink is configured. Default: os.Stdout.
	Passthrough io.Writer

	// Power, when set, gates the initial transport open and every read
	// on device power readiness.
	Power PowerController

	// Clock is the time source for elapsed-time markers. Default:
	// clock.Real().
	Clock clock.Clock

	// Logger for session events. Default: slog.Default().
	Logger *slog.Logger
}

// Session owns a device console: it drains the transport on a
// background goroutine, frames the stream into lines, keeps a bounded
// recent history, and layers synchronous command execution on top via
// the prompt handshake.
//
// All exported methods are safe for concurrent use. Run serializes
// against other Run calls and against buffer introspection through the
// session lock, while still letting the read loop deliver data whenever
// Run is parked waiting for a prompt.
type Session struct {
	mu   sync.Mutex
	cond *sync.Cond

	// Guarded by mu.
	buffer     *lineBuffer
	marks      annotator
	prompt     string
	timestamps bool
	alive      bool

	transport Transport
	power     PowerController
	out       publisher
	logger    *slog.Logger

	// stop asks the read loop to exit; done is closed when it has.
	// stopOnce makes repeated Stop calls safe; started (guarded by mu)
	// records whether a read loop exists for Stop to join.
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// New creates a Session around the given transport. The read loop does
// not start until Start is called.
func New(config Config) (*Session, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if config.Prompt == "" {
		config.Prompt = "=> "
	}
	if config.Passthrough == nil {
		config.Passthrough = os.Stdout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	session := &Session{
		buffer:     newLineBuffer(),
		marks:      annotator{clock: config.Clock},
		prompt:     config.Prompt,
		timestamps: config.Timestamps,
		transport:  config.Transport,
		power:      config.Power,
		out: publisher{
			sink:     config.Sink,
			fallback: config.Passthrough,
			logger:   config.Logger,
		},
		logger: config.Logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	session.cond = sync.NewCond(&session.mu)
	return session, nil
}

// Start spawns the background read loop. Call it exactly once; a second
// Start on the same session is undefined.
func (s *Session) Start() {
	s.mu.Lock()
	s.alive = true
	s.started = true
	s.mu.Unlock()
	go s.readLoop()
}

// Stop signals the read loop to exit, closes the transport to unblock
// a read in flight, and waits for the loop goroutine. Stop is
// idempotent, and calling it before Start simply marks the session
// stopped (a later Start's read loop exits immediately). A session
// parked inside PowerController.Wait cannot be joined until the
// controller releases it — Wait has no cancellation.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	started := s.started
	_ = s.transport.Close()
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// Alive reports whether the read loop is still servicing the console.
// It flips to false permanently once the reopen budget is exhausted;
// buffered state remains readable afterwards.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Pause closes the transport without stopping the read loop. A read in
// flight fails and is absorbed by the standard recovery path.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transport.Close(); err != nil {
		s.logger.Warn("closing console for pause", "error", err)
	}
}

// Resume reopens the transport after a Pause.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transport.Open(); err != nil {
		s.logger.Warn("reopening console for resume", "error", err)
	}
}

// Clear drops all buffered lines and the pending tail.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.clear()
}

// Dump returns everything buffered: the whole line history followed by
// the pending tail. The history is consumed by the read; the pending
// tail survives and will be returned again by a later Dump.
func (s *Session) Dump() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.dump(false)
}

// Flush is Dump plus discarding the pending tail.
func (s *Session) Flush() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.dump(true)
}

// Head removes and returns the oldest buffered line. ok is false when
// the history is empty.
func (s *Session) Head() (line string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.buffer.popOldest()
	if !ok {
		return "", false
	}
	return decode(raw), true
}

// Tail returns the most recently received bytes — the pending tail if
// non-empty, otherwise the newest buffered line — and clears the whole
// buffer as a side effect. ok is false when nothing has been received.
func (s *Session) Tail() (line string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.tail(true)
}

// Lines returns the number of completed lines currently buffered.
func (s *Session) Lines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.count()
}

// Prompt returns the configured prompt, first replacing it with
// newPrompt if non-empty.
func (s *Session) Prompt(newPrompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if newPrompt != "" {
		s.prompt = newPrompt
	}
	return s.prompt
}

// ResetTimer clears the elapsed-time baseline; the next received byte
// re-arms it.
func (s *Session) ResetTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks.reset()
}

// ToggleTimestamps flips elapsed-time markers on or off and returns the
// new state.
func (s *Session) ToggleTimestamps() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timestamps = !s.timestamps
	return s.timestamps
}

// Write transmits data to the device. When raw is false, C-style
// backslash escapes in data are interpreted first. A transport write
// fault is logged and the bytes are dropped; it is never retried and
// never surfaces to the caller.
//
// Write deliberately does not take the session lock: the transmit path
// is independent of the receive-side buffers, and a Run parked on the
// prompt must not block an out-of-band write (for example an interrupt
// typed by an operator).
func (s *Session) Write(data string, raw bool) {
	payload := []byte(data)
	if !raw {
		payload = interpretEscapes(data)
	}
	s.transmit(payload)
}

// Run executes a command synchronously over the asynchronous stream:
//
//  1. Clear all buffered state.
//  2. Send an interrupt to force a fresh prompt; wait for it.
//  3. Clear again, send the command and a line terminator.
//  4. Wait for the next prompt.
//  5. Drop the echoed command line and return everything else received.
//
// Run holds the session lock for its whole duration except while parked
// waiting for a prompt, which serializes concurrent Runs against each
// other. There is no cancellation: a device that never returns a
// matching prompt blocks the caller forever.
func (s *Session) Run(command string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.clear()

	// A break gets us a prompt no matter what the device was doing.
	s.transmit([]byte{interruptByte})
	s.waitFor(s.promptVisible)

	s.buffer.clear()
	s.transmit(append([]byte(command), '\n'))
	s.waitFor(s.promptVisible)

	// First buffered line is the echo of the command we sent; the
	// buffer tail is the prompt that satisfied the wait. Neither is
	// command output.
	s.buffer.popOldest()
	output := s.buffer.dump(true)
	return trimPromptTail(output, s.prompt)
}

// waitFor blocks until predicate holds, releasing the session lock
// while parked and re-evaluating after every ingestion notification.
// The lock must be held on entry and is held again on return. No
// timeout, by design.
func (s *Session) waitFor(predicate func() bool) {
	for !predicate() {
		s.cond.Wait()
	}
}

// promptVisible reports whether the device is sitting at its prompt:
// the current tail must end with the configured prompt. The suffix test
// (rather than equality) tolerates whatever precedes the prompt in the
// tail — an elapsed-time marker, a redrawn line. A device redrawing its
// prompt emits "\r=> ", so exactly one leading carriage return is
// stripped first; a second one means the redraw is still in flight and
// the prompt is not settled.
func (s *Session) promptVisible() bool {
	tail, ok := s.buffer.tail(false)
	if !ok {
		return false
	}
	trimmed := strings.TrimPrefix(tail, "\r")
	if strings.HasPrefix(trimmed, "\r") {
		return false
	}
	return strings.HasSuffix(trimmed, s.prompt)
}

// transmit writes bytes to the transport, logging (and otherwise
// swallowing) write faults per the session's error model.
func (s *Session) transmit(data []byte) {
	if err := s.transport.Write(data); err != nil {
		s.logger.Warn("write error on the console", "error", err)
	}
}

// trimPromptTail removes the prompt (and the CR some devices emit
// before it) from the end of command output.
func trimPromptTail(output, prompt string) string {
	if strings.HasSuffix(output, prompt) {
		output = output[:len(output)-len(prompt)]
		output = strings.TrimSuffix(output, "\r")
	}
	return output
}

// ingest is the read loop's delivery path for one received chunk:
// annotate, tee to the sink, frame into the line buffer, then wake
// every parked waiter.
func (s *Session) ingest(data []byte) {
	if len(data) == 0 {
		return
	}

	s.mu.Lock()
	annotated, frames := s.marks.annotate(data, s.timestamps)
	s.mu.Unlock()

	// The live tee happens before buffering and outside the lock: a
	// slow sink must not delay waiters on the line buffer.
	s.out.publish(annotated)

	s.mu.Lock()
	s.buffer.extendPending(annotated)
	for ; frames > 0; frames-- {
		line, ok := s.buffer.extractLine()
		if !ok {
			break
		}
		s.buffer.append(line)
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}
