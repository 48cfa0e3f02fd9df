// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package console

// reopenBudget is the lifetime number of failed transport reopen
// attempts the session tolerates. The budget is decremented only when
// a reopen fails — never on read failures, and it is never replenished
// by later successes. Exhaustion is terminal: the session goes
// permanently inert for new data.
const reopenBudget = 3

// readLoop is the sole producer for the session's buffers. It gates on
// power readiness, drains the transport, and feeds each chunk through
// annotate → publish → frame. On a read fault it recovers by closing
// and reopening the transport, within the reopen budget.
func (s *Session) readLoop() {
	defer close(s.done)

	retries := reopenBudget

	// A Stop issued before Start wins: never open the transport.
	select {
	case <-s.stop:
		return
	default:
	}

	if s.power != nil {
		s.power.Wait()
	}
	s.mu.Lock()
	if err := s.transport.Open(); err != nil {
		// Leave recovery to the read path: the failed read below walks
		// the same close-and-reopen sequence a mid-session fault does.
		s.logger.Warn("opening console transport", "error", err)
	}
	s.mu.Unlock()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		if s.power != nil {
			s.power.Wait()
		}

		// Take whatever is immediately available, or block for at
		// least one byte.
		max := s.transport.Pending()
		if max < 1 {
			max = 1
		}
		data, err := s.transport.Read(max)
		if err == nil {
			s.ingest(data)
			continue
		}

		// Stop closes the transport; a read failing then is shutdown,
		// not a fault to recover from.
		select {
		case <-s.stop:
			return
		default:
		}

		if retries > 0 {
			s.logger.Warn("resetting console to recover from read error", "error", err)
			s.mu.Lock()
			reopenErr := s.reopenLocked()
			s.mu.Unlock()
			if reopenErr != nil {
				retries--
				s.logger.Warn("console reopen failed", "error", reopenErr, "retries_left", retries)
			}
			// Back to the read either way; a failed reopen surfaces as
			// the next read fault rather than an immediate retry here.
			continue
		}

		s.logger.Error("failed to reset the console, aborting")
		s.mu.Lock()
		s.alive = false
		s.mu.Unlock()
		return
	}
}

// reopenLocked closes and reopens the transport. Caller holds the
// session lock.
func (s *Session) reopenLocked() error {
	if err := s.transport.Close(); err != nil {
		return err
	}
	return s.transport.Open()
}
