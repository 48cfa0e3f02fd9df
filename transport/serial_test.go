// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "testing"

func TestSerialSupportedBaudRates(t *testing.T) {
	t.Parallel()
	for _, baud := range []int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600} {
		if _, ok := baudFlags[baud]; !ok {
			t.Errorf("baud rate %d is not supported", baud)
		}
	}
}

func TestSerialUnsupportedBaudRejectedAtOpen(t *testing.T) {
	t.Parallel()
	serial := NewSerial("/dev/null", 12345)
	if err := serial.Open(); err == nil {
		serial.Close()
		t.Fatal("Open with an unsupported baud rate: expected an error")
	}
}

func TestSerialMissingDevice(t *testing.T) {
	t.Parallel()
	serial := NewSerial("/dev/benchwire-does-not-exist", 115200)
	if err := serial.Open(); err == nil {
		serial.Close()
		t.Fatal("Open on a missing device: expected an error")
	}
}

func TestSerialClosedOperationsFail(t *testing.T) {
	t.Parallel()
	serial := NewSerial("/dev/ttyUSB0", 115200)

	if _, err := serial.Read(1); err == nil {
		t.Error("Read on a closed transport: expected an error")
	}
	if err := serial.Write([]byte("x")); err == nil {
		t.Error("Write on a closed transport: expected an error")
	}
	if got := serial.Pending(); got != 0 {
		t.Errorf("Pending on a closed transport: got %d, want 0", got)
	}
	if err := serial.Close(); err != nil {
		t.Errorf("Close on a never-opened transport: got %v, want nil", err)
	}
}
