// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/benchwire/benchwire/console"
)

// Compile-time interface check.
var _ console.Transport = (*Serial)(nil)

// errNotOpen is returned for I/O on a transport that is not open.
var errNotOpen = errors.New("transport is not open")

// baudFlags maps supported line speeds to their termios constants.
var baudFlags = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	921600: unix.B921600,
}

// Serial is a console transport backed by a local serial device. Open
// puts the line into raw 8N1 mode at the configured speed; the device
// never becomes the controlling terminal of the process.
type Serial struct {
	device string
	baud   int

	mu   sync.Mutex
	file *os.File
}

// NewSerial creates a serial transport for the given device path (for
// example /dev/ttyUSB0) at the given line speed. The device is not
// touched until Open.
func NewSerial(device string, baud int) *Serial {
	return &Serial{device: device, baud: baud}
}

// Open opens the device and configures it for raw byte I/O. Opening an
// already open transport is a no-op.
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return nil
	}

	speed, ok := baudFlags[s.baud]
	if !ok {
		return fmt.Errorf("unsupported baud rate %d for %s", s.baud, s.device)
	}

	fd, err := unix.Open(s.device, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.device, err)
	}

	if err := configureRaw(fd, speed); err != nil {
		unix.Close(fd)
		return fmt.Errorf("configuring %s: %w", s.device, err)
	}

	s.file = os.NewFile(uintptr(fd), s.device)
	return nil
}

// configureRaw switches the line to raw mode: 8 data bits, no parity,
// no flow control, no echo, no signal handling, blocking reads that
// return as soon as a single byte arrives.
func configureRaw(fd int, speed uint32) error {
	settings, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	settings.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	settings.Oflag &^= unix.OPOST
	settings.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	settings.Cflag &^= unix.CSIZE | unix.PARENB | unix.CBAUD
	settings.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	settings.Ispeed = speed
	settings.Ospeed = speed

	// Block until one byte is available, then return whatever fits.
	settings.Cc[unix.VMIN] = 1
	settings.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, unix.TCSETS, settings)
}

// Close closes the device, failing any read in flight.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Read returns up to max bytes, blocking until at least one byte is
// available.
func (s *Serial) Read(max int) ([]byte, error) {
	s.mu.Lock()
	file := s.file
	s.mu.Unlock()
	if file == nil {
		return nil, errNotOpen
	}
	if max < 1 {
		max = 1
	}

	data := make([]byte, max)
	n, err := file.Read(data)
	if n > 0 {
		return data[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// Pending reports the number of bytes queued in the kernel's input
// buffer. Errors (including a closed transport) report zero, which the
// caller treats as "read one byte".
func (s *Serial) Pending() int {
	s.mu.Lock()
	file := s.file
	s.mu.Unlock()
	if file == nil {
		return 0
	}

	queued, err := unix.IoctlGetInt(int(file.Fd()), unix.TIOCINQ)
	if err != nil {
		return 0
	}
	return queued
}

// Write sends data to the device.
func (s *Serial) Write(data []byte) error {
	s.mu.Lock()
	file := s.file
	s.mu.Unlock()
	if file == nil {
		return errNotOpen
	}
	_, err := file.Write(data)
	return err
}
