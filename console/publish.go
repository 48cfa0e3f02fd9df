// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"io"
	"log/slog"
)

// Sink receives a copy of every chunk the session ingests, in arrival
// order, independent of line framing and buffering. Implementations
// must not block for long: the tee happens on the read loop.
type Sink interface {
	// Send forwards one chunk to the observer. A failed Send is never
	// retried; the bytes are simply not observed remotely.
	Send(data []byte) error
}

// publisher tees received chunks to the configured sink, or to the
// default passthrough writer when no sink is set. No buffering, no
// backpressure.
type publisher struct {
	sink     Sink
	fallback io.Writer
	logger   *slog.Logger
}

func (p *publisher) publish(data []byte) {
	if p.sink != nil {
		if err := p.sink.Send(data); err != nil {
			p.logger.Warn("forwarding console bytes to sink", "error", err)
		}
		return
	}
	// Passthrough failures are not actionable here either; the buffered
	// history still has the bytes.
	_, _ = p.fallback.Write(data)
}
