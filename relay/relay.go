// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/benchwire/benchwire/console"
)

// Compile-time interface check: the relay is wired into a session as
// its live-copy sink.
var _ console.Sink = (*Relay)(nil)

// observerQueueDepth is the per-observer backlog of pending data
// chunks. An observer that falls this far behind is disconnected
// rather than allowed to stall the console stream.
const observerQueueDepth = 256

// Config assembles a Relay.
type Config struct {
	// Listener accepts observer connections. Required; the relay owns
	// it and closes it on Close.
	Listener net.Listener

	// Device identifies the observed console in the metadata sent to
	// observers (a device path or address).
	Device string

	// Prompt is the session's prompt, forwarded in the metadata.
	Prompt string

	// HistoryBytes is the history ring capacity. Default:
	// DefaultHistoryBytes.
	HistoryBytes int

	// Logger for relay events. Default: slog.Default().
	Logger *slog.Logger
}

// Relay tees a console session's output to network observers. It
// implements console.Sink: every chunk the session ingests lands in
// the history ring and fans out to every connected observer.
type Relay struct {
	listener  net.Listener
	device    string
	prompt    string
	sessionID string
	ring      *historyRing
	logger    *slog.Logger

	mu        sync.Mutex
	observers map[*observer]struct{}
	closed    bool

	done chan struct{}
}

// observer is one connected watcher: a connection plus a bounded queue
// of data chunks awaiting transmission.
type observer struct {
	conn  net.Conn
	queue chan []byte
	quit  chan struct{}
}

// New creates a relay and starts accepting observers on the
// configured listener.
func New(config Config) (*Relay, error) {
	if config.Listener == nil {
		return nil, fmt.Errorf("listener is required")
	}
	if config.HistoryBytes < 1 {
		config.HistoryBytes = DefaultHistoryBytes
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	relay := &Relay{
		listener:  config.Listener,
		device:    config.Device,
		prompt:    config.Prompt,
		sessionID: uuid.NewString(),
		ring:      newHistoryRing(config.HistoryBytes),
		logger:    config.Logger,
		observers: make(map[*observer]struct{}),
		done:      make(chan struct{}),
	}
	go relay.acceptLoop()
	return relay, nil
}

// Address returns the listener's address in "host:port" form.
func (r *Relay) Address() string {
	return r.listener.Addr().String()
}

// SessionID returns the identifier observers use to detect a relay
// restart.
func (r *Relay) SessionID() string {
	return r.sessionID
}

// Send records one console chunk and fans it out. It never blocks on a
// slow observer: a watcher whose queue is full is disconnected instead.
// Send implements console.Sink and never fails — relay trouble must not
// disturb the console session.
func (r *Relay) Send(data []byte) error {
	chunk := append([]byte(nil), data...)

	r.mu.Lock()
	r.ring.write(chunk)
	var dropped []*observer
	for watcher := range r.observers {
		select {
		case watcher.queue <- chunk:
		default:
			delete(r.observers, watcher)
			close(watcher.quit)
			dropped = append(dropped, watcher)
		}
	}
	r.mu.Unlock()

	for _, watcher := range dropped {
		r.logger.Warn("dropping observer that cannot keep up",
			"remote", watcher.conn.RemoteAddr())
		watcher.conn.Close()
	}
	return nil
}

// Close stops accepting observers, disconnects the connected ones, and
// waits for the accept loop to exit.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	watchers := make([]*observer, 0, len(r.observers))
	for watcher := range r.observers {
		delete(r.observers, watcher)
		close(watcher.quit)
		watchers = append(watchers, watcher)
	}
	r.mu.Unlock()

	err := r.listener.Close()
	for _, watcher := range watchers {
		watcher.conn.Close()
	}
	<-r.done
	return err
}

// ObserverCount returns the number of connected observers.
func (r *Relay) ObserverCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

func (r *Relay) acceptLoop() {
	defer close(r.done)
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				r.logger.Warn("accepting observer connection", "error", err)
			}
			return
		}
		go r.handle(conn)
	}
}

// handle runs the observer handshake and then streams live data until
// the observer disconnects or falls behind.
func (r *Relay) handle(conn net.Conn) {
	hello, err := r.readHello(conn)
	if err != nil {
		r.logger.Warn("observer handshake failed",
			"remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}

	watcher := &observer{
		conn:  conn,
		queue: make(chan []byte, observerQueueDepth),
		quit:  make(chan struct{}),
	}

	// Register and snapshot the history under the relay lock so the
	// observer sees every byte exactly once: everything up to the
	// snapshot arrives in the history message, everything after through
	// the queue.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		conn.Close()
		return
	}
	history := r.ring.readSince(hello.SinceOffset)
	historyOffset := r.ring.currentOffset()
	r.observers[watcher] = struct{}{}
	r.mu.Unlock()

	if err := r.sendHandshake(conn, history, historyOffset); err != nil {
		r.logger.Warn("observer handshake write failed",
			"remote", conn.RemoteAddr(), "error", err)
		r.drop(watcher)
		return
	}

	r.logger.Info("observer connected",
		"remote", conn.RemoteAddr(),
		"since_offset", hello.SinceOffset,
		"history_bytes", len(history))
	r.stream(watcher)
}

func (r *Relay) readHello(conn net.Conn) (HelloPayload, error) {
	message, err := ReadMessage(conn)
	if err != nil {
		return HelloPayload{}, err
	}
	if message.Type != MessageTypeHello {
		return HelloPayload{}, fmt.Errorf("expected hello message, got type 0x%02x", message.Type)
	}
	var hello HelloPayload
	if err := UnmarshalPayload(message.Payload, &hello); err != nil {
		return HelloPayload{}, fmt.Errorf("decoding hello: %w", err)
	}
	return hello, nil
}

func (r *Relay) sendHandshake(conn net.Conn, history []byte, historyOffset uint64) error {
	metadata, err := MarshalPayload(MetadataPayload{
		Device:        r.device,
		SessionID:     r.sessionID,
		Prompt:        r.prompt,
		HistoryOffset: historyOffset,
	})
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := WriteMessage(conn, Message{Type: MessageTypeMetadata, Payload: metadata}); err != nil {
		return err
	}
	return WriteMessage(conn, Message{Type: MessageTypeHistory, Payload: EncodeHistory(history)})
}

// stream drains the observer's queue onto its connection until the
// observer is dropped or the write side fails.
func (r *Relay) stream(watcher *observer) {
	for {
		select {
		case chunk := <-watcher.queue:
			if err := WriteMessage(watcher.conn, Message{Type: MessageTypeData, Payload: chunk}); err != nil {
				r.drop(watcher)
				return
			}
		case <-watcher.quit:
			watcher.conn.Close()
			return
		}
	}
}

// drop unregisters an observer and closes its connection. Safe to call
// for an observer someone else already dropped.
func (r *Relay) drop(watcher *observer) {
	r.mu.Lock()
	if _, ok := r.observers[watcher]; ok {
		delete(r.observers, watcher)
		close(watcher.quit)
	}
	r.mu.Unlock()
	watcher.conn.Close()
}
