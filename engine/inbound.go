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

package engine

import (
	"github.com/packetd/amqpwire/codec"
	"github.com/packetd/amqpwire/errs"
	"github.com/packetd/amqpwire/logger"
)

// consumeData copies min(target_size-inbound_offset, len(received)) bytes
// from received into the current inbound buffer and advances both sides,
// returning the number of bytes consumed.
func (c *Connection) consumeData(received []byte) int {
	n := c.targetSize - c.inboundOffset
	if n > len(received) {
		n = len(received)
	}
	copy(c.inboundBuffer[c.inboundOffset:c.inboundOffset+n], received[:n])
	c.inboundOffset += n
	return n
}

// HandleInput feeds received into the decode state machine and reports how
// many bytes were consumed. out is populated when a complete frame is
// ready (out.Type != codec.FrameTypeNone); otherwise out.Type is
// codec.FrameTypeNone and the caller should supply more input on the next
// call. A negative-style failure is instead reported as a non-nil error,
// following Go convention rather than the original's negative-return-code
// taxonomy.
//
// The two mandated fall-through transitions (INITIAL->HEADER and
// HEADER->BODY) are written as explicit, visible control flow below rather
// than switch-case fallthrough, so each stage transition reads as its own
// step.
func (c *Connection) HandleInput(received []byte, out *codec.Frame) (int, error) {
	*out = codec.Frame{}

	if len(received) == 0 {
		return 0, nil
	}

	if c.state == StateIdle {
		c.state = StateHeader
	}

	consumed := c.consumeData(received)

	if c.inboundOffset < c.targetSize {
		return consumed, nil
	}

	if c.state == StateInitial {
		if codec.IsProtocolHeader(c.inboundBuffer) {
			ph := codec.DecodeProtocolHeader(c.inboundBuffer)
			out.Type = codec.FrameTypeProtocolHeader
			out.Channel = 0
			out.ProtocolHeader = &ph
			c.returnToIdle()
			return consumed, nil
		}

		// Not a protocol header: the 8 bytes already read are
		// reinterpreted as a 7-byte frame header followed by the first
		// payload byte; all 8 are carried into the fresh body buffer
		// below. inboundOffset stays at 8: those bytes have already been
		// consumed from the wire and must not be re-requested from the
		// next consumeData.
		c.state = StateHeader
	}

	if c.state == StateHeader {
		channel := codec.HeaderChannel(c.inboundBuffer)
		channelPool := c.poolTable.GetOrCreate(channel)

		newTarget := uint64(codec.HeaderPayloadLen(c.inboundBuffer)) + codec.HeaderSize + codec.FooterSize
		if newTarget > uint64(c.frameMax) {
			return consumed, errs.New(errs.BadAMQPData, "frame size %d exceeds frame_max %d", newTarget, c.frameMax)
		}

		buf := channelPool.AllocBytes(int(newTarget))
		copy(buf, c.headerBuffer[:c.inboundOffset])
		c.inboundBuffer = buf
		c.targetSize = int(newTarget)
		c.state = StateBody

		consumed += c.consumeData(received[consumed:])

		if c.inboundOffset < c.targetSize {
			return consumed, nil
		}
	}

	// StateBody
	if !codec.FooterOK(c.inboundBuffer, c.targetSize) {
		// Deliberately left in StateBody: the connection is no longer
		// usable once framing is corrupted, so returning to IDLE would
		// misrepresent the connection as still sound.
		return consumed, errs.New(errs.BadAMQPData, "missing frame-end marker")
	}

	out.Type = codec.FrameType(codec.D8(c.inboundBuffer, 0))
	out.Channel = codec.HeaderChannel(c.inboundBuffer)
	channelPool := c.poolTable.GetOrCreate(out.Channel)

	switch out.Type {
	case codec.FrameTypeMethod:
		id := codec.D32(c.inboundBuffer, codec.HeaderSize)
		encoded := c.inboundBuffer[codec.HeaderSize+4 : c.targetSize-codec.FooterSize]
		decoded, err := c.methodCodec.DecodeMethod(id, channelPool, encoded)
		if err != nil {
			return consumed, err
		}
		out.Method = &codec.MethodPayload{ID: id, Decoded: decoded}

	case codec.FrameTypeHeader:
		classID := codec.D16(c.inboundBuffer, codec.HeaderSize)
		bodySize := codec.D64(c.inboundBuffer, codec.HeaderSize+4)
		raw := c.inboundBuffer[codec.HeaderSize+12 : c.targetSize-codec.FooterSize]
		decoded, err := c.propertiesCodec.DecodeProperties(classID, channelPool, raw)
		if err != nil {
			return consumed, err
		}
		out.Properties = &codec.PropertiesPayload{ClassID: classID, BodySize: bodySize, Raw: raw, Decoded: decoded}

	case codec.FrameTypeBody:
		out.Body = c.inboundBuffer[codec.HeaderSize : c.targetSize-codec.FooterSize]

	case codec.FrameTypeHeartbeat:
		// no payload

	default:
		// Unknown frame type: silently ignored per spec Open Question (a).
		out.Type = codec.FrameTypeNone
	}

	observeDecoded(out.Type.String(), consumed)
	if out.Type != codec.FrameTypeNone {
		logger.Debugf("amqpwire: decoded %s frame channel=%d digest=%x", out.Type, out.Channel, digestFrame(out))
	}
	c.returnToIdle()
	return consumed, nil
}
