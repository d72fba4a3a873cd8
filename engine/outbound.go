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
	"github.com/packetd/amqpwire/timer"
)

// BodySource lazily produces a BODY frame's payload for SendFrameStreaming.
// Available reports how many bytes are ready to Peek without blocking; a
// non-positive value means either a failure (negative) or a premature
// exhaustion (zero) — either aborts the stream with UnexpectedState.
type BodySource interface {
	Available() int
	Peek() []byte
	Consume(n int)
}

// SendFrame encodes frame into the outbound buffer and transmits it. BODY
// frames are sent as a zero-copy scatter-send of header, body and footer;
// every other frame type is encoded contiguously into outbound_buffer and
// sent as one call.
func (c *Connection) SendFrame(frame *codec.Frame) error {
	if c.socket == nil {
		return errs.New(errs.InvalidParameter, "no transport configured")
	}

	codec.EncodeHeaderPrefix(c.outboundBuffer, frame.Type, frame.Channel)

	var sendErr error
	if frame.Type == codec.FrameTypeBody {
		codec.E32(c.outboundBuffer, 3, uint32(len(frame.Body)))
		footer := [1]byte{codec.FrameEnd}
		sendErr = c.socket.ScatterSend([][]byte{
			c.outboundBuffer[:codec.HeaderSize],
			frame.Body,
			footer[:],
		})
	} else {
		n, err := c.encodeNonBodyPayload(frame)
		if err != nil {
			return err
		}
		codec.E32(c.outboundBuffer, 3, uint32(n))
		codec.E8(c.outboundBuffer, codec.HeaderSize+n, codec.FrameEnd)
		sendErr = c.socket.Send(c.outboundBuffer[:codec.HeaderSize+n+codec.FooterSize])
	}

	if sendErr != nil {
		return sendErr
	}
	observeSent(frame.Type.String())
	return c.updateSendHeartbeat()
}

// SendFrameStreaming behaves like SendFrame, except for BODY frames the
// payload is drawn lazily from body, whose declared total length is
// bodyLen. Non-BODY frames are identical to SendFrame.
func (c *Connection) SendFrameStreaming(frame *codec.Frame, bodyLen int, body BodySource) error {
	if frame.Type != codec.FrameTypeBody {
		return c.SendFrame(frame)
	}
	if c.socket == nil {
		return errs.New(errs.InvalidParameter, "no transport configured")
	}

	codec.EncodeHeaderPrefix(c.outboundBuffer, frame.Type, frame.Channel)
	codec.E32(c.outboundBuffer, 3, uint32(bodyLen))

	if err := c.socket.Send(c.outboundBuffer[:codec.HeaderSize]); err != nil {
		return err
	}

	remaining := bodyLen
	for remaining > 0 {
		avail := body.Available()
		if avail <= 0 {
			return errs.New(errs.UnexpectedState, "body source exhausted with %d bytes remaining", remaining)
		}
		n := avail
		if n > remaining {
			n = remaining
		}
		if err := c.socket.Send(body.Peek()[:n]); err != nil {
			return err
		}
		body.Consume(n)
		remaining -= n
	}

	if err := c.socket.Send([]byte{codec.FrameEnd}); err != nil {
		return err
	}
	observeSent(frame.Type.String())
	return c.updateSendHeartbeat()
}

// encodeNonBodyPayload writes a METHOD/HEADER/HEARTBEAT payload into
// outbound_buffer starting at HeaderSize and returns its encoded length.
func (c *Connection) encodeNonBodyPayload(frame *codec.Frame) (int, error) {
	switch frame.Type {
	case codec.FrameTypeMethod:
		if frame.Method == nil {
			return 0, errs.New(errs.InvalidParameter, "method frame missing payload")
		}
		codec.E32(c.outboundBuffer, codec.HeaderSize, frame.Method.ID)
		n, err := c.methodCodec.EncodeMethod(frame.Method.ID, frame.Method.Decoded, c.outboundBuffer[codec.HeaderSize+4:])
		if err != nil {
			return 0, err
		}
		return 4 + n, nil

	case codec.FrameTypeHeader:
		if frame.Properties == nil {
			return 0, errs.New(errs.InvalidParameter, "header frame missing payload")
		}
		codec.E16(c.outboundBuffer, codec.HeaderSize, frame.Properties.ClassID)
		codec.E16(c.outboundBuffer, codec.HeaderSize+2, 0) // weight, unused
		codec.E64(c.outboundBuffer, codec.HeaderSize+4, frame.Properties.BodySize)
		n, err := c.propertiesCodec.EncodeProperties(frame.Properties.ClassID, frame.Properties.Decoded, c.outboundBuffer[codec.HeaderSize+12:])
		if err != nil {
			return 0, err
		}
		return 12 + n, nil

	case codec.FrameTypeHeartbeat:
		return 0, nil

	default:
		return 0, errs.New(errs.InvalidParameter, "unsupported outbound frame type %v", frame.Type)
	}
}

// updateSendHeartbeat recomputes next_send_heartbeat after a successful
// send. A clock failure is surfaced as TimerFailure even though the send
// itself succeeded, mirroring the original engine's ordering.
func (c *Connection) updateSendHeartbeat() error {
	if c.heartbeatInterval == 0 {
		return nil
	}
	now, ok := c.clock()
	if !ok {
		return errs.TimerFailure
	}
	c.nextSendHeartbeat = timer.NextSendDeadline(now, c.heartbeatInterval)
	observeHeartbeatDeadlines(c.nextSendHeartbeat, c.nextRecvHeartbeat)
	return nil
}
