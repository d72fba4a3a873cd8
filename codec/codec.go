// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package codec implements the AMQP 0-9-1 wire frame layout: the 7-byte
// frame header, the per-type payload layout, and the 0xCE frame-end
// footer. The AMQP method/class codec tables are treated as external
// collaborators (MethodCodec / PropertiesCodec) and are never implemented
// here.
package codec

import "encoding/binary"

// FrameType identifies the kind of an AMQP frame.
type FrameType uint8

const (
	// FrameTypeNone means "no complete frame" — either more input is
	// required, or a complete frame of an unknown type was intentionally
	// ignored.
	FrameTypeNone FrameType = 0

	// FrameTypeMethod carries a decoded AMQP method.
	FrameTypeMethod FrameType = 1

	// FrameTypeHeader carries decoded content properties.
	FrameTypeHeader FrameType = 2

	// FrameTypeBody carries a raw message body fragment.
	FrameTypeBody FrameType = 3

	// FrameTypeHeartbeat carries no payload.
	FrameTypeHeartbeat FrameType = 8

	// FrameTypeProtocolHeader is a pseudo frame type: it never appears on
	// the wire as a type byte, it is synthesized only for the 8-byte
	// "AMQP" + version handshake at connection start.
	FrameTypeProtocolHeader FrameType = 0xFF
)

// String implements fmt.Stringer for use as a low-cardinality metric label.
func (t FrameType) String() string {
	switch t {
	case FrameTypeNone:
		return "none"
	case FrameTypeMethod:
		return "method"
	case FrameTypeHeader:
		return "header"
	case FrameTypeBody:
		return "body"
	case FrameTypeHeartbeat:
		return "heartbeat"
	case FrameTypeProtocolHeader:
		return "protocol_header"
	default:
		return "unknown"
	}
}

const (
	// HeaderSize is the fixed AMQP frame header length:
	// type(1) + channel(2) + payload_length(4).
	HeaderSize = 7

	// FooterSize is the length of the frame-end marker.
	FooterSize = 1

	// FrameEnd is the constant byte terminating every real frame.
	FrameEnd = 0xCE

	// ProtocolHeaderSize is the length of the "AMQP" + 4 version bytes
	// handshake frame. No frame-end marker follows it.
	ProtocolHeaderSize = 8
)

// ProtocolHeaderMagic is the literal ASCII sentinel opening the 8-byte
// protocol header handshake.
var ProtocolHeaderMagic = [4]byte{'A', 'M', 'Q', 'P'}

// D8 reads a big-endian uint8 at offset off.
func D8(b []byte, off int) uint8 { return b[off] }

// D16 reads a big-endian uint16 at offset off.
func D16(b []byte, off int) uint16 { return binary.BigEndian.Uint16(b[off : off+2]) }

// D32 reads a big-endian uint32 at offset off.
func D32(b []byte, off int) uint32 { return binary.BigEndian.Uint32(b[off : off+4]) }

// D64 reads a big-endian uint64 at offset off.
func D64(b []byte, off int) uint64 { return binary.BigEndian.Uint64(b[off : off+8]) }

// E8 writes a big-endian uint8 at offset off.
func E8(b []byte, off int, v uint8) { b[off] = v }

// E16 writes a big-endian uint16 at offset off.
func E16(b []byte, off int, v uint16) { binary.BigEndian.PutUint16(b[off:off+2], v) }

// E32 writes a big-endian uint32 at offset off.
func E32(b []byte, off int, v uint32) { binary.BigEndian.PutUint32(b[off:off+4], v) }

// E64 writes a big-endian uint64 at offset off.
func E64(b []byte, off int, v uint64) { binary.BigEndian.PutUint64(b[off:off+8], v) }

// ProtocolHeader is the decoded 8-byte connection-start handshake.
type ProtocolHeader struct {
	TransportHigh     uint8
	TransportLow      uint8
	VersionMajor      uint8
	VersionMinor      uint8
}

// DecodeProtocolHeader decodes the last 4 bytes of an 8-byte buffer whose
// first 4 bytes have already been matched against ProtocolHeaderMagic.
func DecodeProtocolHeader(b []byte) ProtocolHeader {
	return ProtocolHeader{
		TransportHigh: D8(b, 4),
		TransportLow:  D8(b, 5),
		VersionMajor:  D8(b, 6),
		VersionMinor:  D8(b, 7),
	}
}

// IsProtocolHeader reports whether b (at least 4 bytes) starts with the
// "AMQP" sentinel.
func IsProtocolHeader(b []byte) bool {
	return len(b) >= 4 &&
		b[0] == ProtocolHeaderMagic[0] && b[1] == ProtocolHeaderMagic[1] &&
		b[2] == ProtocolHeaderMagic[2] && b[3] == ProtocolHeaderMagic[3]
}

// MethodPayload is a decoded METHOD frame.
type MethodPayload struct {
	ID      uint32
	Decoded any
}

// PropertiesPayload is a decoded HEADER (content properties) frame.
type PropertiesPayload struct {
	ClassID  uint16
	BodySize uint64
	Raw      []byte
	Decoded  any
}

// Frame is the tagged union decoded by / encoded to the wire.
type Frame struct {
	Type    FrameType
	Channel uint16

	Method         *MethodPayload
	Properties     *PropertiesPayload
	Body           []byte // body_fragment, valid for FrameTypeBody
	ProtocolHeader *ProtocolHeader
}

// MethodCodec is the external collaborator decoding/encoding AMQP method
// frame bodies. The core frame codec never interprets method_id or method
// argument layouts itself.
type MethodCodec interface {
	// DecodeMethod parses the method-argument bytes (everything after the
	// 4-byte method id) using pool for any allocations the decoded value
	// needs to keep alive.
	DecodeMethod(methodID uint32, pool Allocator, b []byte) (any, error)

	// EncodeMethod serializes decoded into out[0:] and returns the number
	// of bytes written.
	EncodeMethod(methodID uint32, decoded any, out []byte) (int, error)
}

// PropertiesCodec is the external collaborator decoding/encoding AMQP
// content-properties frame bodies.
type PropertiesCodec interface {
	DecodeProperties(classID uint16, pool Allocator, b []byte) (any, error)
	EncodeProperties(classID uint16, decoded any, out []byte) (int, error)
}

// Allocator is the minimal arena surface the method/properties codecs need:
// just the ability to allocate scratch bytes that outlive the call. It is
// satisfied by *arena.Arena without codec importing arena's concrete type,
// keeping the external-collaborator contract narrow.
type Allocator interface {
	AllocBytes(size int) []byte
}
