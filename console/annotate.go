// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"time"

	"github.com/benchwire/benchwire/lib/clock"
)

// annotator rewrites ingested chunks with elapsed-time markers and
// reports how many framing attempts the ingestion path should make for
// the chunk. The elapsed-time baseline is set once, on the very first
// byte the session ever ingests, and survives until reset.
//
// Fields are protected by the session lock.
type annotator struct {
	clock clock.Clock

	// started records whether the baseline has been set. A zero
	// baseline time is not a usable sentinel: resetting must re-arm on
	// the next byte even if the fake clock sits at the zero time.
	started  bool
	baseline time.Time
}

// annotate processes one ingested chunk. With timestamps enabled, every
// CR byte is stripped and a marker of the form "[<seconds>] " (six
// decimal places) is appended after each LF; the returned count is the
// exact number of LF bytes seen. With timestamps disabled the chunk
// passes through untouched and the count is a fixed 1 — one framing
// attempt per ingestion call, so extra terminators in the chunk stay
// queued in the pending tail until later ingestion calls frame them.
func (a *annotator) annotate(data []byte, timestamps bool) ([]byte, int) {
	if len(data) > 0 && !a.started {
		a.started = true
		a.baseline = a.clock.Now()
	}

	if !timestamps {
		return data, 1
	}

	rewritten := make([]byte, 0, len(data))
	linefeeds := 0
	for _, c := range data {
		if c == '\r' {
			continue
		}
		rewritten = append(rewritten, c)
		if c == '\n' {
			elapsed := a.clock.Now().Sub(a.baseline).Seconds()
			rewritten = append(rewritten, fmt.Sprintf("[%4.6f] ", elapsed)...)
			linefeeds++
		}
	}
	return rewritten, linefeeds
}

// reset clears the baseline; the next ingested byte re-arms it.
func (a *annotator) reset() {
	a.started = false
	a.baseline = time.Time{}
}
