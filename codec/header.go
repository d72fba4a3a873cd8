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

package codec

// ValidFrameType reports whether b is a recognized on-wire frame type byte.
// Unknown types are a legal (if SHOULD-reject-per-spec) occurrence on the
// wire; see spec Open Question (a) — they are not treated as malformed
// framing, only as frames the caller chooses to ignore.
func ValidFrameType(b uint8) bool {
	switch FrameType(b) {
	case FrameTypeMethod, FrameTypeHeader, FrameTypeBody, FrameTypeHeartbeat:
		return true
	default:
		return false
	}
}

// HeaderChannel reads the channel id out of a 7-byte (or longer) frame
// header buffer.
func HeaderChannel(b []byte) uint16 { return D16(b, 1) }

// HeaderPayloadLen reads the payload_length field out of a 7-byte (or
// longer) frame header buffer.
func HeaderPayloadLen(b []byte) uint32 { return D32(b, 3) }

// EncodeHeaderPrefix writes the frame_type and channel fields (offsets 0
// and 1) of a frame header into buf. The payload_length field (offset 3)
// is filled in separately once the payload length is known.
func EncodeHeaderPrefix(buf []byte, frameType FrameType, channel uint16) {
	E8(buf, 0, uint8(frameType))
	E16(buf, 1, channel)
}

// FooterOK reports whether the byte at b[targetSize-1] is the AMQP
// frame-end marker.
func FooterOK(b []byte, targetSize int) bool {
	return targetSize >= 1 && len(b) >= targetSize && b[targetSize-1] == FrameEnd
}
