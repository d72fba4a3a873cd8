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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/amqpwire/codec"
	"github.com/packetd/amqpwire/errs"
)

func newTestConnection() *Connection {
	c := New()
	return c
}

func idleConnection(t *testing.T, frameMax uint32) *Connection {
	t.Helper()
	c := newTestConnection()
	c.state = StateIdle
	c.Tune(0, frameMax, 0)
	c.returnToIdle()
	return c
}

func TestProtocolMismatchScenario(t *testing.T) {
	c := newTestConnection()
	var out codec.Frame
	n, err := c.HandleInput([]byte{0x41, 0x4D, 0x51, 0x50, 0x00, 0x00, 0x09, 0x01}, &out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, codec.FrameTypeProtocolHeader, out.Type)
	assert.Equal(t, uint16(0), out.Channel)
	require.NotNil(t, out.ProtocolHeader)
	assert.Equal(t, codec.ProtocolHeader{TransportHigh: 0, TransportLow: 0, VersionMajor: 9, VersionMinor: 1}, *out.ProtocolHeader)
	assert.Equal(t, StateIdle, c.State())
}

// TestInitialFallthroughToHeaderCompletesFrame exercises StateInitial
// receiving 8 bytes that aren't a protocol header: the normal case for any
// real connection's first inbound frame (the server's Connection.Start
// METHOD frame never starts with "AMQP"). The 8 bytes already read must be
// reinterpreted as the 7-byte frame header plus one payload byte, without
// rewinding inboundOffset, or the frame never completes.
func TestInitialFallthroughToHeaderCompletesFrame(t *testing.T) {
	c := newTestConnection()
	var out codec.Frame
	// FrameTypeMethod, channel 0, payload len 4: header=[01 00 00 00 00 00 04],
	// payload=[AA BB CC DD], footer=[CE]. 12 bytes total, frame_max default.
	wire := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0xAA, 0xBB, 0xCC, 0xDD, 0xCE}

	n, err := c.HandleInput(wire[:8], &out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, codec.FrameTypeNone, out.Type)

	n2, err := c.HandleInput(wire[8:], &out)
	require.NoError(t, err)
	assert.Equal(t, 4, n2)
	assert.Equal(t, codec.FrameTypeMethod, out.Type)
	assert.Equal(t, uint16(0), out.Channel)
	assert.Equal(t, StateIdle, c.State())
}

func TestHeartbeatScenario(t *testing.T) {
	c := idleConnection(t, 4096)
	var out codec.Frame
	n, err := c.HandleInput([]byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xCE}, &out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, codec.FrameTypeHeartbeat, out.Type)
	assert.Equal(t, uint16(0), out.Channel)
	assert.Equal(t, StateIdle, c.State())
}

func TestMinimumBodyScenario(t *testing.T) {
	c := idleConnection(t, 4096)
	var out codec.Frame
	n, err := c.HandleInput([]byte{0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x41, 0x42, 0x43, 0xCE}, &out)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, codec.FrameTypeBody, out.Type)
	assert.Equal(t, uint16(1), out.Channel)
	assert.Equal(t, []byte{0x41, 0x42, 0x43}, out.Body)
}

func TestSplitDeliveryScenario(t *testing.T) {
	whole := []byte{0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x41, 0x42, 0x43, 0xCE}

	c := idleConnection(t, 4096)
	var out codec.Frame

	n1, err := c.HandleInput(whole[0:4], &out)
	require.NoError(t, err)
	assert.Equal(t, 4, n1)
	assert.Equal(t, codec.FrameTypeNone, out.Type)

	n2, err := c.HandleInput(whole[4:7], &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n2)
	assert.Equal(t, codec.FrameTypeNone, out.Type)

	n3, err := c.HandleInput(whole[7:11], &out)
	require.NoError(t, err)
	assert.Equal(t, 4, n3)
	assert.Equal(t, codec.FrameTypeBody, out.Type)
	assert.Equal(t, uint16(1), out.Channel)
	assert.Equal(t, []byte{0x41, 0x42, 0x43}, out.Body)
}

func TestOversizeRejectScenario(t *testing.T) {
	c := idleConnection(t, 16)
	var out codec.Frame
	n, err := c.HandleInput([]byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x20, 0, 0, 0, 0, 0, 0, 0}, &out)
	assert.Error(t, err)
	assert.True(t, errs.Is(err, errs.BadAMQPData))
	assert.Equal(t, 7, n)
}

func TestFooterMissingScenario(t *testing.T) {
	c := idleConnection(t, 4096)
	var out codec.Frame
	n, err := c.HandleInput([]byte{0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x41, 0x42, 0x43, 0x00}, &out)
	assert.Error(t, err)
	assert.True(t, errs.Is(err, errs.BadAMQPData))
	assert.Equal(t, 11, n)
	assert.Equal(t, StateBody, c.State())
}

func TestByteAtATimeMatchesSingleShot(t *testing.T) {
	whole := []byte{0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x41, 0x42, 0x43, 0xCE}

	oneShot := idleConnection(t, 4096)
	var single codec.Frame
	_, err := oneShot.HandleInput(whole, &single)
	require.NoError(t, err)

	perByte := idleConnection(t, 4096)
	var last codec.Frame
	for _, b := range whole {
		_, err := perByte.HandleInput([]byte{b}, &last)
		require.NoError(t, err)
	}

	assert.Equal(t, single.Type, last.Type)
	assert.Equal(t, single.Channel, last.Channel)
	assert.Equal(t, single.Body, last.Body)
}

func TestUnknownFrameTypeIsConsumedSilently(t *testing.T) {
	c := idleConnection(t, 4096)
	var out codec.Frame
	n, err := c.HandleInput([]byte{0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x41, 0xCE}, &out)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, codec.FrameTypeNone, out.Type)
	assert.Equal(t, StateIdle, c.State())
}

func TestEmptyInputReturnsZeroAndNone(t *testing.T) {
	c := newTestConnection()
	var out codec.Frame
	n, err := c.HandleInput(nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, codec.FrameTypeNone, out.Type)
}

func TestIdleInvariants(t *testing.T) {
	c := idleConnection(t, 4096)
	assert.Equal(t, 0, c.inboundOffset)
	assert.Equal(t, codec.HeaderSize, c.targetSize)
	assert.Equal(t, StateIdle, c.State())
}

// TestOversizeBoundaryAcceptedAndRejected exercises the exact boundary of
// the new_target = payload_len + HeaderSize + FooterSize <= frame_max
// check: the largest payload that still fits, and the smallest that
// overflows by one byte.
func TestOversizeBoundaryAcceptedAndRejected(t *testing.T) {
	const frameMax = 32

	accepted := idleConnection(t, frameMax)
	body := make([]byte, frameMax-codec.HeaderSize-codec.FooterSize)
	frame := append([]byte{0x03, 0x00, 0x00}, []byte{
		byte(len(body) >> 24), byte(len(body) >> 16), byte(len(body) >> 8), byte(len(body)),
	}...)
	frame = append(frame, body...)
	frame = append(frame, 0xCE)
	var out codec.Frame
	_, err := accepted.HandleInput(frame, &out)
	require.NoError(t, err)
	assert.Equal(t, codec.FrameTypeBody, out.Type)

	rejected := idleConnection(t, frameMax)
	body2 := make([]byte, frameMax-codec.HeaderSize-codec.FooterSize+1)
	frame2 := append([]byte{0x03, 0x00, 0x00}, []byte{
		byte(len(body2) >> 24), byte(len(body2) >> 16), byte(len(body2) >> 8), byte(len(body2)),
	}...)
	frame2 = append(frame2, body2...)
	frame2 = append(frame2, 0xCE)
	var out2 codec.Frame
	_, err = rejected.HandleInput(frame2, &out2)
	assert.True(t, errs.Is(err, errs.BadAMQPData))
}
