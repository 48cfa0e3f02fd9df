// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/benchwire/benchwire/relay"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "benchwire-attach: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var sinceOffset uint64

	flagSet := pflag.NewFlagSet("benchwire-attach", pflag.ContinueOnError)
	flagSet.Uint64Var(&sinceOffset, "since", 0, "resume from this history offset (0 requests the full retained history)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: benchwire-attach [--since <offset>] <host:port>")
	}
	address := flagSet.Arg(0)

	conn, err := net.DialTimeout("tcp", address, 10*time.Second)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	defer conn.Close()

	hello, err := relay.MarshalPayload(relay.HelloPayload{SinceOffset: sinceOffset})
	if err != nil {
		return err
	}
	if err := relay.WriteMessage(conn, relay.Message{Type: relay.MessageTypeHello, Payload: hello}); err != nil {
		return fmt.Errorf("sending hello: %w", err)
	}

	metadata, err := readMetadata(conn)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "observing %s (session %s, prompt %q)\r\n",
		metadata.Device, metadata.SessionID, metadata.Prompt)

	// Put the local terminal into raw mode so console escape sequences
	// render instead of being mangled by line discipline.
	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			return fmt.Errorf("setting raw terminal mode: %w", err)
		}
		defer term.Restore(stdinFd, oldState)
		go watchForDetach(conn)
	}

	return stream(conn)
}

// readMetadata consumes the relay's metadata message.
func readMetadata(conn net.Conn) (relay.MetadataPayload, error) {
	message, err := relay.ReadMessage(conn)
	if err != nil {
		return relay.MetadataPayload{}, fmt.Errorf("reading metadata: %w", err)
	}
	if message.Type != relay.MessageTypeMetadata {
		return relay.MetadataPayload{}, fmt.Errorf("expected metadata message, got type 0x%02x", message.Type)
	}
	var metadata relay.MetadataPayload
	if err := relay.UnmarshalPayload(message.Payload, &metadata); err != nil {
		return relay.MetadataPayload{}, fmt.Errorf("decoding metadata: %w", err)
	}
	return metadata, nil
}

// stream copies history and live console data to stdout until the relay
// closes the connection.
func stream(conn net.Conn) error {
	for {
		message, err := relay.ReadMessage(conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		switch message.Type {
		case relay.MessageTypeHistory:
			history, err := relay.DecodeHistory(message.Payload)
			if err != nil {
				return err
			}
			os.Stdout.Write(history)
		case relay.MessageTypeData:
			os.Stdout.Write(message.Payload)
		default:
			return fmt.Errorf("unexpected message type 0x%02x", message.Type)
		}
	}
}

// watchForDetach closes the connection when the operator presses q or
// Ctrl-C. In raw mode the signal keys arrive as bytes, so this is the
// only way out.
func watchForDetach(conn net.Conn) {
	buffer := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buffer)
		if err != nil {
			conn.Close()
			return
		}
		if n == 1 && (buffer[0] == 'q' || buffer[0] == 0x03) {
			conn.Close()
			return
		}
	}
}
