// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net"
	"testing"
)

// loopbackServer accepts one connection and echoes a greeting, then
// copies every received payload back prefixed with "ack:".
func loopbackServer(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := conn.Write([]byte("hello\n")); err != nil {
			return
		}
		buffer := make([]byte, 256)
		for {
			n, err := conn.Read(buffer)
			if err != nil {
				return
			}
			if _, err := conn.Write(append([]byte("ack:"), buffer[:n]...)); err != nil {
				return
			}
		}
	}()
	return listener
}

func TestTCPOpenReadWrite(t *testing.T) {
	t.Parallel()
	listener := loopbackServer(t)

	tcp := NewTCP(listener.Addr().String())
	if err := tcp.Open(); err != nil {
		t.Fatal(err)
	}
	defer tcp.Close()

	greeting, err := tcp.Read(64)
	if err != nil {
		t.Fatal(err)
	}
	if string(greeting) != "hello\n" {
		t.Errorf("greeting: got %q, want %q", greeting, "hello\n")
	}

	if err := tcp.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	reply, err := tcp.Read(64)
	if err != nil {
		t.Fatal(err)
	}
	if string(reply) != "ack:ping" {
		t.Errorf("reply: got %q, want %q", reply, "ack:ping")
	}
}

func TestTCPReadRespectsMax(t *testing.T) {
	t.Parallel()
	listener := loopbackServer(t)

	tcp := NewTCP(listener.Addr().String())
	if err := tcp.Open(); err != nil {
		t.Fatal(err)
	}
	defer tcp.Close()

	// The greeting is six bytes; a max of 2 must cap the read.
	chunk, err := tcp.Read(2)
	if err != nil {
		t.Fatal(err)
	}
	if string(chunk) != "he" {
		t.Errorf("capped read: got %q, want %q", chunk, "he")
	}
}

func TestTCPClosedOperationsFail(t *testing.T) {
	t.Parallel()
	tcp := NewTCP("127.0.0.1:1")

	if _, err := tcp.Read(1); err == nil {
		t.Error("Read on a closed transport: expected an error")
	}
	if err := tcp.Write([]byte("x")); err == nil {
		t.Error("Write on a closed transport: expected an error")
	}
	if got := tcp.Pending(); got != 0 {
		t.Errorf("Pending on a closed transport: got %d, want 0", got)
	}
	if err := tcp.Close(); err != nil {
		t.Errorf("Close on a never-opened transport: got %v, want nil", err)
	}
}

func TestTCPOpenTwiceIsNoOp(t *testing.T) {
	t.Parallel()
	listener := loopbackServer(t)

	tcp := NewTCP(listener.Addr().String())
	if err := tcp.Open(); err != nil {
		t.Fatal(err)
	}
	defer tcp.Close()
	if err := tcp.Open(); err != nil {
		t.Errorf("second Open: got %v, want nil", err)
	}
}

func TestTCPOpenUnreachable(t *testing.T) {
	t.Parallel()
	// A listener we immediately close gives us an address that refuses
	// connections.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	address := listener.Addr().String()
	listener.Close()

	tcp := NewTCP(address)
	if err := tcp.Open(); err == nil {
		tcp.Close()
		t.Fatal("Open to a refused address: expected an error")
	}
}
