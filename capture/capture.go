// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture persists a console session's output to disk. The
// writer hashes everything it stores with BLAKE3 and records the digest
// in a sidecar file, so a captured log can later be tied to a test
// report and verified against tampering or truncation.
package capture

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/benchwire/benchwire/console"
)

// Compile-time interface check: a capture writer can serve directly as
// a session's sink.
var _ console.Sink = (*Writer)(nil)

// Writer appends console output to a log file while maintaining a
// running BLAKE3 digest of the file contents. Safe for concurrent use.
type Writer struct {
	path string

	mu     sync.Mutex
	file   *os.File
	hasher *blake3.Hasher
	closed bool
}

// NewWriter creates (or truncates) the log file at path.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating capture file: %w", err)
	}
	return &Writer{
		path:   path,
		file:   file,
		hasher: blake3.New(),
	}, nil
}

// Path returns the log file path.
func (w *Writer) Path() string { return w.path }

// Write appends data to the log file and folds it into the digest.
func (w *Writer) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, fmt.Errorf("capture file %s is closed", w.path)
	}
	n, err := w.file.Write(data)
	// Hash only what actually reached the file, so the digest always
	// matches the bytes on disk even after a short write.
	w.hasher.Write(data[:n])
	if err != nil {
		return n, fmt.Errorf("writing capture file: %w", err)
	}
	return n, nil
}

// Send implements console.Sink.
func (w *Writer) Send(data []byte) error {
	_, err := w.Write(data)
	return err
}

// Sum returns the hex BLAKE3 digest of everything written so far.
func (w *Writer) Sum() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return hex.EncodeToString(w.hasher.Sum(nil))
}

// Close flushes the log file, writes the digest to a "<path>.b3"
// sidecar in the conventional "<digest>  <filename>" checksum format,
// and returns the digest.
func (w *Writer) Close() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return "", fmt.Errorf("capture file %s is already closed", w.path)
	}
	w.closed = true

	digest := hex.EncodeToString(w.hasher.Sum(nil))
	if err := w.file.Close(); err != nil {
		return "", fmt.Errorf("closing capture file: %w", err)
	}

	sidecar := fmt.Sprintf("%s  %s\n", digest, w.file.Name())
	if err := os.WriteFile(w.path+".b3", []byte(sidecar), 0o644); err != nil {
		return "", fmt.Errorf("writing capture digest: %w", err)
	}
	return digest, nil
}
