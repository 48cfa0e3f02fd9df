// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Message type constants for the observer protocol wire format. Each
// message is a 5-byte header (1 byte type + 4 byte big-endian payload
// length) followed by the payload.
const (
	// MessageTypeHello is the observer's opening message. Observer→relay
	// only. Payload is a CBOR HelloPayload.
	MessageTypeHello byte = 0x01

	// MessageTypeMetadata identifies the session. Relay→observer only,
	// sent once in response to the hello. Payload is a CBOR
	// MetadataPayload.
	MessageTypeMetadata byte = 0x02

	// MessageTypeHistory carries the console history the observer missed,
	// sent once after the metadata and before live data. Payload is a
	// compression tag, the raw size, and the (possibly compressed) bytes;
	// see EncodeHistory.
	MessageTypeHistory byte = 0x03

	// MessageTypeData carries live console bytes. Relay→observer only.
	// Payload is opaque bytes passed through unmodified.
	MessageTypeData byte = 0x04
)

// messageHeaderLength is the fixed size of a message header: 1 byte
// type + 4 bytes payload length.
const messageHeaderLength = 5

// maxPayloadLength is the maximum allowed payload size. 16 MB is
// generous for console data; a full history dump is typically 1 MB.
const maxPayloadLength = 16 * 1024 * 1024

// Message is a single observer protocol message.
type Message struct {
	Type    byte
	Payload []byte
}

// messageName returns a readable name for a message type, for error
// reporting.
func messageName(messageType byte) string {
	switch messageType {
	case MessageTypeHello:
		return "hello"
	case MessageTypeMetadata:
		return "metadata"
	case MessageTypeHistory:
		return "history"
	case MessageTypeData:
		return "data"
	}
	return fmt.Sprintf("type-0x%02x", messageType)
}

// WriteMessage writes a framed message to w as a single write, so
// frames never interleave even if two goroutines share the writer. The
// frame format is: [1 byte type] [4 bytes payload length, big-endian
// uint32] [payload].
func WriteMessage(w io.Writer, message Message) error {
	if len(message.Payload) > maxPayloadLength {
		return fmt.Errorf("%s payload is %d bytes, limit is %d",
			messageName(message.Type), len(message.Payload), maxPayloadLength)
	}
	frame := make([]byte, messageHeaderLength+len(message.Payload))
	frame[0] = message.Type
	binary.BigEndian.PutUint32(frame[1:messageHeaderLength], uint32(len(message.Payload)))
	copy(frame[messageHeaderLength:], message.Payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing %s frame: %w", messageName(message.Type), err)
	}
	return nil
}

// ReadMessage reads a framed message from r. Returns an error if the
// stream is malformed or the frame claims a payload beyond
// maxPayloadLength.
func ReadMessage(r io.Reader) (Message, error) {
	var header [messageHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, fmt.Errorf("reading frame header: %w", err)
	}
	message := Message{Type: header[0]}
	length := binary.BigEndian.Uint32(header[1:])
	if length > maxPayloadLength {
		return Message{}, fmt.Errorf("%s frame claims a %d-byte payload, limit is %d",
			messageName(message.Type), length, maxPayloadLength)
	}
	if length > 0 {
		message.Payload = make([]byte, length)
		if _, err := io.ReadFull(r, message.Payload); err != nil {
			return Message{}, fmt.Errorf("reading %s payload: %w", messageName(message.Type), err)
		}
	}
	return message, nil
}

// HelloPayload is the CBOR structure an observer sends to open the
// stream.
type HelloPayload struct {
	// SinceOffset is the history sequence offset the observer has
	// already seen. Zero requests the full retained history; a
	// reconnecting observer passes the offset from the last metadata or
	// data it processed and receives only the gap.
	SinceOffset uint64 `cbor:"since_offset"`
}

// MetadataPayload is the CBOR structure identifying the session to a
// newly connected observer.
type MetadataPayload struct {
	// Device is the console device path or address being observed.
	Device string `cbor:"device"`

	// SessionID uniquely identifies this session instance. Observers use
	// it to detect that the relay restarted and their offset is from a
	// different stream.
	SessionID string `cbor:"session_id"`

	// Prompt is the session's configured shell prompt.
	Prompt string `cbor:"prompt"`

	// HistoryOffset is the sequence offset the history payload ends at;
	// live data continues from here.
	HistoryOffset uint64 `cbor:"history_offset"`
}

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items.
var encMode cbor.EncMode

// decMode is the CBOR decoder. Unknown fields are ignored for forward
// compatibility.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("relay: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("relay: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalPayload encodes a protocol payload struct to CBOR.
func MarshalPayload(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalPayload decodes a CBOR protocol payload into v.
func UnmarshalPayload(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// History payload compression tags.
const (
	historyRaw  byte = 0
	historyZstd byte = 1
)

// historyHeaderLength is the fixed prefix of a history payload: 1 byte
// compression tag + 4 bytes raw size, big-endian.
const historyHeaderLength = 5

// zstdEncoder and zstdDecoder are reused across calls to avoid repeated
// initialization overhead. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("relay: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("relay: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeHistory builds a history payload: [1 byte tag] [4 bytes raw
// size, big-endian] [bytes]. The bytes are zstd-compressed when that
// actually shrinks them; incompressible history ships raw.
func EncodeHistory(history []byte) []byte {
	payload := make([]byte, historyHeaderLength, historyHeaderLength+len(history))
	binary.BigEndian.PutUint32(payload[1:5], uint32(len(history)))

	compressed := zstdEncoder.EncodeAll(history, nil)
	if len(compressed) < len(history) {
		payload[0] = historyZstd
		return append(payload, compressed...)
	}
	payload[0] = historyRaw
	return append(payload, history...)
}

// DecodeHistory unpacks a history payload produced by EncodeHistory.
func DecodeHistory(payload []byte) ([]byte, error) {
	if len(payload) < historyHeaderLength {
		return nil, fmt.Errorf("history payload too short: %d bytes", len(payload))
	}
	tag := payload[0]
	rawSize := binary.BigEndian.Uint32(payload[1:5])
	if rawSize > maxPayloadLength {
		return nil, fmt.Errorf("history raw size %d exceeds maximum %d", rawSize, maxPayloadLength)
	}
	body := payload[historyHeaderLength:]

	switch tag {
	case historyRaw:
		if uint32(len(body)) != rawSize {
			return nil, fmt.Errorf("raw history: got %d bytes, expected %d", len(body), rawSize)
		}
		return body, nil
	case historyZstd:
		history, err := zstdDecoder.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress history: %w", err)
		}
		if uint32(len(history)) != rawSize {
			return nil, fmt.Errorf("zstd history: got %d bytes, expected %d", len(history), rawSize)
		}
		return history, nil
	default:
		return nil, fmt.Errorf("unknown history compression tag 0x%02x", tag)
	}
}
