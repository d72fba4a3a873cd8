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

// Package engine owns the connection state machine: the byte-level
// handshake, the inbound decode loop, the outbound encode/send path, the
// per-channel arenas, and the heartbeat deadlines. It drives a
// transport.Transport but never blocks on one itself outside of Send/Recv.
package engine

import (
	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/packetd/amqpwire/arena"
	"github.com/packetd/amqpwire/codec"
	"github.com/packetd/amqpwire/errs"
	"github.com/packetd/amqpwire/timer"
	"github.com/packetd/amqpwire/transport"
)

// State is a connection's position in the handshake/decode state machine.
type State int

const (
	// StateInitial expects the 8-byte server protocol header.
	StateInitial State = iota
	// StateIdle is the resting state between frames.
	StateIdle
	// StateHeader is accumulating the 7-byte frame header.
	StateHeader
	// StateBody is accumulating a frame's payload and footer.
	StateBody
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateIdle:
		return "IDLE"
	case StateHeader:
		return "HEADER"
	case StateBody:
		return "BODY"
	default:
		return "UNKNOWN"
	}
}

// InitialSockInboundBufferSize is the default size of the staging buffer a
// caller uses between Transport.Recv and Connection.HandleInput.
const InitialSockInboundBufferSize = 131072

// QueuedFrame is one node of the opaque, caller-maintained list of frames
// queued for later delivery. Only Channel is inspected by the core, to
// decide whether a channel's arena is safe to recycle.
type QueuedFrame struct {
	Channel uint16
	Frame   *codec.Frame
	Next    *QueuedFrame
}

// Connection is a single, process-local, single-owner AMQP 0-9-1 wire
// connection. All methods must be serialized by the caller; there is no
// internal locking.
type Connection struct {
	id uuid.UUID

	state             State
	channelMax        uint16
	frameMax          uint32
	heartbeatInterval uint16

	headerBuffer  [8]byte
	inboundBuffer []byte
	inboundOffset int
	targetSize    int

	sockInboundBuffer *bytebufferpool.ByteBuffer
	outboundBuffer    []byte

	poolTable      *arena.Table
	propertiesPool *arena.Arena

	firstQueuedFrame *QueuedFrame

	nextSendHeartbeat uint64
	nextRecvHeartbeat uint64

	socket          transport.Transport
	methodCodec     codec.MethodCodec
	propertiesCodec codec.PropertiesCodec
	clock           timer.Source

	tracer trace.Tracer
}

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithTransport supplies the byte transport the connection drives. Required.
func WithTransport(t transport.Transport) Option {
	return func(c *Connection) { c.socket = t }
}

// WithMethodCodec supplies the external method-table collaborator.
func WithMethodCodec(mc codec.MethodCodec) Option {
	return func(c *Connection) { c.methodCodec = mc }
}

// WithPropertiesCodec supplies the external properties-table collaborator.
func WithPropertiesCodec(pc codec.PropertiesCodec) Option {
	return func(c *Connection) { c.propertiesCodec = pc }
}

// WithClock overrides the monotonic clock source, mainly for tests.
func WithClock(src timer.Source) Option {
	return func(c *Connection) { c.clock = src }
}

// WithTracer attaches an optional OpenTelemetry tracer. A nil tracer
// disables span creation; see tracing.go.
func WithTracer(t trace.Tracer) Option {
	return func(c *Connection) { c.tracer = t }
}

// New constructs a Connection in StateInitial, expecting the 8-byte server
// protocol header next. It bootstraps the same way the original engine's
// constructor internally tunes itself with frame_max=0 before any caller
// has a chance to observe an untuned connection: frame_max defaults to
// arena.InitialFramePoolPageSize and the outbound buffer is sized to match.
func New(opts ...Option) *Connection {
	c := &Connection{
		id:                uuid.New(),
		state:             StateInitial,
		frameMax:          arena.InitialFramePoolPageSize,
		targetSize:        codec.ProtocolHeaderSize,
		poolTable:         arena.NewTable(),
		propertiesPool:    arena.New(arena.InitialPropertiesPoolPageSize),
		sockInboundBuffer: &bytebufferpool.ByteBuffer{B: make([]byte, InitialSockInboundBufferSize)},
		outboundBuffer:    make([]byte, arena.InitialFramePoolPageSize),
		clock:             timer.Default,
		methodCodec:       codec.NopCodec{},
		propertiesCodec:   codec.NopCodec{},
	}
	c.inboundBuffer = c.headerBuffer[:codec.ProtocolHeaderSize]

	for _, o := range opts {
		o(c)
	}
	return c
}

// ID returns the connection's correlation id, attached to trace spans.
func (c *Connection) ID() uuid.UUID { return c.id }

// State returns the connection's current position in the state machine.
func (c *Connection) State() State { return c.state }

// StagingBuffer returns the owned scratch buffer callers should Recv into
// before passing (a slice of) it to HandleInput. The engine itself never
// touches the transport during decode.
func (c *Connection) StagingBuffer() []byte { return c.sockInboundBuffer.B }

// Tune sets channel_max, frame_max and heartbeat and resizes the outbound
// buffer accordingly. Valid only in StateIdle; calling it from any other
// state is a programmer error and aborts the process, mirroring
// ENFORCE_STATE in the original engine.
func (c *Connection) Tune(channelMax uint16, frameMax uint32, heartbeatSeconds uint16) {
	if c.state != StateIdle {
		errs.Abort("Tune called outside IDLE state (got %s)", c.state)
	}

	if frameMax == 0 {
		frameMax = arena.InitialFramePoolPageSize
	}

	c.channelMax = channelMax
	c.frameMax = frameMax
	c.heartbeatInterval = heartbeatSeconds
	c.outboundBuffer = make([]byte, frameMax)

	if heartbeatSeconds > 0 {
		now, ok := c.clock()
		if ok {
			c.nextSendHeartbeat = timer.NextSendDeadline(now, heartbeatSeconds)
			c.nextRecvHeartbeat = timer.NextRecvDeadline(now, heartbeatSeconds)
			observeHeartbeatDeadlines(c.nextSendHeartbeat, c.nextRecvHeartbeat)
		}
	}
}

// NextSendHeartbeat returns the deadline by which a heartbeat must be sent
// to stay within the negotiated send-silence budget. Meaningless if the
// heartbeat interval is 0.
func (c *Connection) NextSendHeartbeat() uint64 { return c.nextSendHeartbeat }

// NextRecvHeartbeat returns the deadline after which the peer is considered
// dead for having gone silent too long. Meaningless if the heartbeat
// interval is 0.
func (c *Connection) NextRecvHeartbeat() uint64 { return c.nextRecvHeartbeat }

// HeartbeatInterval returns the negotiated heartbeat interval in seconds,
// or 0 if heartbeats are disabled.
func (c *Connection) HeartbeatInterval() uint16 { return c.heartbeatInterval }

// FrameMax returns the negotiated maximum frame size.
func (c *Connection) FrameMax() uint32 { return c.frameMax }

// returnToIdle resets the decoder to await the next 7-byte frame header.
func (c *Connection) returnToIdle() {
	c.inboundBuffer = c.headerBuffer[:codec.HeaderSize]
	c.inboundOffset = 0
	c.targetSize = codec.HeaderSize
	c.state = StateIdle
}

// Destroy releases the connection's transport and arenas. It must only be
// called when no transport operation is in flight. Teardown errors from
// closing the socket are collected rather than dropped, even though there
// is normally at most one.
func (c *Connection) Destroy() error {
	var result error
	if c.socket != nil {
		if err := c.socket.Close(); err != nil {
			result = multierrAppend(result, err)
		}
		c.socket.Destroy()
		c.socket = nil
	}

	c.poolTable.Each(func(_ uint16, a *arena.Arena) { a.Empty() })
	c.propertiesPool.Empty()
	c.firstQueuedFrame = nil

	return result
}
