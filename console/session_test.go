// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/benchwire/benchwire/lib/clock"
	"github.com/benchwire/benchwire/lib/testutil"
)

func TestIngestFramesCRLFLine(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)

	session.ingest([]byte("hello\r\n"))

	if session.Lines() != 1 {
		t.Fatalf("Lines: got %d, want 1", session.Lines())
	}
	line, ok := session.Head()
	if !ok || line != "hello\n" {
		t.Errorf("Head: got %q, %v; want %q, true", line, ok, "hello\n")
	}
}

func TestIngestEvictionDropsOldestLine(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)

	// One more line than the history holds: line "0" is evicted.
	for i := 0; i <= historyCapacity; i++ {
		session.ingest([]byte(fmt.Sprintf("%d\n", i)))
	}

	line, ok := session.Head()
	if !ok || line != "1\n" {
		t.Errorf("Head after eviction: got %q, %v; want %q, true", line, ok, "1\n")
	}
}

func TestIngestSingleFramingAttemptWithoutTimestamps(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)

	// Two terminators in one chunk, timestamps off: only one line is
	// framed now; the rest waits in the pending tail for the next
	// ingestion call.
	session.ingest([]byte("one\ntwo\nthree"))

	if session.Lines() != 1 {
		t.Errorf("Lines after first chunk: got %d, want 1", session.Lines())
	}

	session.ingest([]byte("\n"))
	if session.Lines() != 2 {
		t.Errorf("Lines after second chunk: got %d, want 2", session.Lines())
	}
}

func TestIngestExactFramingWithTimestamps(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(func(config *Config) {
		config.Timestamps = true
		config.Clock = clock.Fake(time.Unix(1700000000, 0))
	})

	session.ingest([]byte("one\r\ntwo\r\n"))

	// Timestamped mode frames exactly as many lines as the chunk has
	// terminators.
	if session.Lines() != 2 {
		t.Errorf("Lines: got %d, want 2", session.Lines())
	}
	line, _ := session.Head()
	if line != "one\n" {
		t.Errorf("first line: got %q, want %q", line, "one\n")
	}
}

func TestIngestTimestampMarkerPublished(t *testing.T) {
	t.Parallel()
	var published bytes.Buffer
	session, _ := idleSession(func(config *Config) {
		config.Timestamps = true
		config.Clock = clock.Fake(time.Unix(1700000000, 0))
		config.Passthrough = &published
	})

	session.ingest([]byte("a\n"))

	if published.String() != "a\n[0.000000] " {
		t.Errorf("published: got %q, want %q", published.String(), "a\n[0.000000] ")
	}
	if got := session.Dump(); got != "a\n[0.000000] " {
		t.Errorf("Dump: got %q, want %q", got, "a\n[0.000000] ")
	}
}

func TestDumpPreservesPendingFlushDiscards(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)
	session.ingest([]byte("a\nbc"))

	if got := session.Dump(); got != "a\nbc" {
		t.Errorf("first Dump: got %q, want %q", got, "a\nbc")
	}
	if got := session.Dump(); got != "bc" {
		t.Errorf("second Dump: got %q, want %q", got, "bc")
	}
	if got := session.Flush(); got != "bc" {
		t.Errorf("Flush: got %q, want %q", got, "bc")
	}
	if got := session.Dump(); got != "" {
		t.Errorf("Dump after Flush: got %q, want empty", got)
	}
}

func TestTailReturnsPendingAndClears(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)
	session.ingest([]byte("x\ny"))

	line, ok := session.Tail()
	if !ok || line != "y" {
		t.Errorf("Tail: got %q, %v; want %q, true", line, ok, "y")
	}
	if session.Lines() != 0 {
		t.Errorf("Lines after Tail: got %d, want 0", session.Lines())
	}
	if got := session.Dump(); got != "" {
		t.Errorf("Dump after Tail: got %q, want empty", got)
	}
}

func TestPromptVisible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		feed string
		want bool
	}{
		{"exact prompt", "=> ", true},
		{"one leading CR ignored", "\r=> ", true},
		{"two leading CRs defeat the match", "\r\r=> ", false},
		{"prompt after framed output", "ls\r\n=> ", true},
		{"prompt after elapsed-time marker", "[0.000000] => ", true},
		{"other text", "loading...", false},
		{"prompt mid-tail", "=> extra", false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			session, _ := idleSession(nil)
			session.ingest([]byte(test.feed))

			session.mu.Lock()
			got := session.promptVisible()
			session.mu.Unlock()

			if got != test.want {
				t.Errorf("promptVisible with tail %q: got %v, want %v", test.feed, got, test.want)
			}
		})
	}
}

func TestPromptVisibleEmptyBuffer(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)

	session.mu.Lock()
	got := session.promptVisible()
	session.mu.Unlock()

	if got {
		t.Error("promptVisible on an empty buffer: got true, want false")
	}
}

func TestPromptGetAndSet(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)

	if got := session.Prompt(""); got != "=> " {
		t.Errorf("default prompt: got %q, want %q", got, "=> ")
	}
	if got := session.Prompt("# "); got != "# " {
		t.Errorf("Prompt after set: got %q, want %q", got, "# ")
	}
	if got := session.Prompt(""); got != "# " {
		t.Errorf("Prompt sticks: got %q, want %q", got, "# ")
	}
}

func TestToggleTimestamps(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)

	if !session.ToggleTimestamps() {
		t.Error("first toggle: got false, want true")
	}
	if session.ToggleTimestamps() {
		t.Error("second toggle: got true, want false")
	}
}

func TestWriteInterpretsEscapes(t *testing.T) {
	t.Parallel()
	session, transport := idleSession(nil)

	session.Write(`version\n`, false)
	if got := transport.lastWrite(); string(got) != "version\n" {
		t.Errorf("escaped write: got %q, want %q", got, "version\n")
	}

	session.Write(`raw\n`, true)
	if got := transport.lastWrite(); string(got) != `raw\n` {
		t.Errorf("raw write: got %q, want %q", got, `raw\n`)
	}
}

func TestRunCommandEndToEnd(t *testing.T) {
	t.Parallel()
	session, transport := idleSession(nil)

	// The device answers an interrupt with a fresh prompt and echoes
	// commands before printing their output, one read per line — the
	// cadence a real serial console has.
	transport.respondTo("\x03", "\r\n=> ")
	transport.respondTo("ls\n", "ls\r\n", "file1\r\n", "file2\r\n", "=> ")

	session.Start()
	defer session.Stop()

	results := make(chan string, 1)
	go func() { results <- session.Run("ls") }()

	output := testutil.RequireReceive(t, results, 5*time.Second, "command output")
	if output != "file1\nfile2\n" {
		t.Errorf("Run output: got %q, want %q", output, "file1\nfile2\n")
	}
}

func TestRunCommandWithTimestamps(t *testing.T) {
	t.Parallel()
	session, transport := idleSession(func(config *Config) {
		config.Timestamps = true
		config.Clock = clock.Fake(time.Unix(1700000000, 0))
	})

	// With timestamps on, every line terminator grows a marker, so the
	// pending tail reads "[0.000000] => " when the device settles at
	// its prompt. The handshake must still recognize it.
	transport.respondTo("\x03", "\r\n=> ")
	transport.respondTo("ls\n", "ls\r\n", "file1\r\n", "file2\r\n", "=> ")

	session.Start()
	defer session.Stop()

	results := make(chan string, 1)
	go func() { results <- session.Run("ls") }()

	output := testutil.RequireReceive(t, results, 5*time.Second, "command output")
	want := "[0.000000] file1\n[0.000000] file2\n[0.000000] "
	if output != want {
		t.Errorf("Run output: got %q, want %q", output, want)
	}
}

func TestRunSerializesAgainstItself(t *testing.T) {
	t.Parallel()
	session, transport := idleSession(nil)

	transport.respondTo("\x03", "\r\n=> ")
	transport.respondTo("first\n", "first\r\n", "one\r\n", "=> ")
	transport.respondTo("second\n", "second\r\n", "two\r\n", "=> ")

	session.Start()
	defer session.Stop()

	results := make(chan string, 2)
	go func() { results <- session.Run("first") }()
	// The second Run parks on the session lock until the first
	// completes; both must still see only their own output.
	go func() { results <- session.Run("second") }()

	got := map[string]bool{}
	got[testutil.RequireReceive(t, results, 5*time.Second, "first result")] = true
	got[testutil.RequireReceive(t, results, 5*time.Second, "second result")] = true

	if !got["one\n"] || !got["two\n"] {
		t.Errorf("Run outputs: got %v, want {%q, %q}", got, "one\n", "two\n")
	}
}

func TestRunTrimsPromptAndEcho(t *testing.T) {
	t.Parallel()
	session, transport := idleSession(nil)

	// No output between echo and prompt: Run returns an empty string.
	transport.respondTo("\x03", "\r\n=> ")
	transport.respondTo("true\n", "true\r\n", "=> ")

	session.Start()
	defer session.Stop()

	results := make(chan string, 1)
	go func() { results <- session.Run("true") }()

	output := testutil.RequireReceive(t, results, 5*time.Second, "command output")
	if output != "" {
		t.Errorf("Run output: got %q, want empty", output)
	}
}

func TestNewRequiresTransport(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}); err == nil {
		t.Fatal("New without a transport: expected an error")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()
	session, _ := idleSession(nil)

	session.Start()
	session.Stop()
	// A second Stop must neither panic nor block.
	session.Stop()
}

func TestStopBeforeStart(t *testing.T) {
	t.Parallel()
	session, transport := idleSession(nil)

	// Stop with no read loop running returns immediately.
	returned := make(chan struct{})
	go func() {
		session.Stop()
		close(returned)
	}()
	testutil.RequireClosed(t, returned, 5*time.Second, "Stop before Start returns")

	// A later Start observes the shutdown and exits without opening the
	// transport.
	session.Start()
	testutil.RequireClosed(t, session.done, 5*time.Second, "read loop exit")
	if transport.openCount() != 0 {
		t.Errorf("opens after stopped Start: got %d, want 0", transport.openCount())
	}
}
