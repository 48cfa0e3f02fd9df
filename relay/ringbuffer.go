// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import "sync"

// DefaultHistoryBytes is the default history ring capacity. 1 MB of
// console output covers a full boot log plus a long test run for a
// typical embedded target.
const DefaultHistoryBytes = 1024 * 1024

// historyRing retains the most recent console bytes in a fixed-size
// circular store, addressed by monotonically increasing stream offsets.
// head is the offset of the oldest byte still retained and end is the
// offset the next write lands at; the byte at offset o lives at
// o % capacity. Observers remember the offset they have consumed up to
// and ask for "everything since offset N" when they reconnect.
//
// All methods are safe for concurrent use.
type historyRing struct {
	mu   sync.Mutex
	data []byte
	head uint64
	end  uint64
}

func newHistoryRing(capacity int) *historyRing {
	if capacity < 1 {
		capacity = DefaultHistoryBytes
	}
	return &historyRing{data: make([]byte, capacity)}
}

// write appends a chunk to the ring. Offsets advance by the full chunk
// length even when the chunk is larger than the ring — the skipped
// bytes are simply never retained.
func (ring *historyRing) write(chunk []byte) {
	ring.mu.Lock()
	defer ring.mu.Unlock()

	capacity := uint64(len(ring.data))
	if uint64(len(chunk)) > capacity {
		skipped := uint64(len(chunk)) - capacity
		ring.end += skipped
		chunk = chunk[skipped:]
	}

	// At most two copies: up to the end of the store, then a wrap to
	// its start.
	position := ring.end % capacity
	n := copy(ring.data[position:], chunk)
	copy(ring.data, chunk[n:])

	ring.end += uint64(len(chunk))
	if ring.end-ring.head > capacity {
		ring.head = ring.end - capacity
	}
}

// readSince returns a copy of every retained byte at or after the given
// offset. An offset older than head is clamped to it (the observer
// missed some data); an offset at or past end returns nil.
func (ring *historyRing) readSince(offset uint64) []byte {
	ring.mu.Lock()
	defer ring.mu.Unlock()

	if offset < ring.head {
		offset = ring.head
	}
	if offset >= ring.end {
		return nil
	}

	result := make([]byte, ring.end-offset)
	position := offset % uint64(len(ring.data))
	n := copy(result, ring.data[position:])
	copy(result[n:], ring.data)
	return result
}

// currentOffset returns the offset the next write will land at. This is
// the sequence number an observer stores and passes back in its hello
// on reconnect.
func (ring *historyRing) currentOffset() uint64 {
	ring.mu.Lock()
	defer ring.mu.Unlock()
	return ring.end
}
