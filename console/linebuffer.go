// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// historyCapacity is the number of completed lines the session retains.
// Insertion beyond the capacity evicts the oldest line; eviction is
// normal operation, not an error.
const historyCapacity = 1000

// lineBuffer is the bounded store of framed console lines plus the
// unterminated tail of the stream. Completed lines (each ending in a
// single LF) live in a fixed-capacity ring with FIFO eviction; bytes
// that have not yet seen a terminator accumulate in pending.
//
// lineBuffer has no locking of its own: every method is called with
// the session lock held.
type lineBuffer struct {
	// lines is the ring storage. Entries are immutable once appended.
	lines [][]byte

	// start indexes the oldest entry; used is the number of entries.
	start int
	used  int

	// pending holds the unterminated tail. Unbounded.
	pending []byte
}

func newLineBuffer() *lineBuffer {
	return &lineBuffer{lines: make([][]byte, historyCapacity)}
}

// clear drops the line history and the pending tail entirely.
func (b *lineBuffer) clear() {
	for i := 0; i < b.used; i++ {
		b.lines[(b.start+i)%historyCapacity] = nil
	}
	b.start = 0
	b.used = 0
	b.pending = nil
}

// append adds a completed line to the history, evicting the oldest
// entry if the ring is full. A trailing CR-LF pair is normalized to a
// single LF first.
func (b *lineBuffer) append(line []byte) {
	if n := len(line); n >= 2 && line[n-2] == '\r' && line[n-1] == '\n' {
		line = append(line[:n-2], '\n')
	}
	if b.used == historyCapacity {
		b.lines[b.start] = nil
		b.start = (b.start + 1) % historyCapacity
		b.used--
	}
	b.lines[(b.start+b.used)%historyCapacity] = line
	b.used++
}

// extendPending appends raw bytes to the pending tail.
func (b *lineBuffer) extendPending(data []byte) {
	b.pending = append(b.pending, data...)
}

// extractLine cuts the first terminated line (LF included) out of the
// pending tail. Returns false if pending holds no terminator.
func (b *lineBuffer) extractLine() ([]byte, bool) {
	offset := bytes.IndexByte(b.pending, '\n')
	if offset < 0 {
		return nil, false
	}
	end := offset + 1
	// Cap the line at its own length so a later in-place CR-LF rewrite
	// cannot touch bytes that still belong to pending.
	line := b.pending[:end:end]
	b.pending = b.pending[end:]
	return line, true
}

// popOldest removes and returns the oldest history entry.
func (b *lineBuffer) popOldest() ([]byte, bool) {
	if b.used == 0 {
		return nil, false
	}
	line := b.lines[b.start]
	b.lines[b.start] = nil
	b.start = (b.start + 1) % historyCapacity
	b.used--
	return line, true
}

// count returns the number of completed lines in the history. The
// pending tail is not counted.
func (b *lineBuffer) count() int {
	return b.used
}

// dump concatenates the whole history (oldest to newest) followed by
// the pending tail, decoding leniently. The history is drained as part
// of producing the string regardless of the flag; pending survives
// unless destructive is set.
func (b *lineBuffer) dump(destructive bool) string {
	var out strings.Builder
	for {
		line, ok := b.popOldest()
		if !ok {
			break
		}
		out.WriteString(decode(line))
	}
	out.WriteString(decode(b.pending))
	if destructive {
		b.pending = nil
	}
	return out.String()
}

// tail returns the most recently observed bytes: the pending tail if it
// is non-empty, otherwise the newest history entry. When discard is
// set, the whole buffer (history and pending both) is cleared as a side
// effect — not just the returned item.
func (b *lineBuffer) tail(discard bool) (string, bool) {
	var raw []byte
	switch {
	case len(b.pending) > 0:
		raw = b.pending
	case b.used > 0:
		raw = b.lines[(b.start+b.used-1)%historyCapacity]
	default:
		return "", false
	}
	line := decode(raw)
	if discard {
		b.clear()
	}
	return line, true
}

// decode converts console bytes to a string, replacing invalid UTF-8
// sequences instead of failing. Nothing in this package ever raises a
// decoding error.
func decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return string(bytes.ToValidUTF8(data, []byte(string(utf8.RuneError))))
}
