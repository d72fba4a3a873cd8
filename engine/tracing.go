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
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/packetd/amqpwire/codec"
)

// startSpan opens a span named op if a tracer was configured via
// WithTracer; otherwise it returns ctx unchanged and a no-op end func, so
// callers never need to nil-check the tracer themselves.
func (c *Connection) startSpan(ctx context.Context, op string) (context.Context, func()) {
	if c.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := c.tracer.Start(ctx, "amqpwire.engine."+op,
		trace.WithAttributes(
			attribute.String("amqpwire.connection_id", c.id.String()),
			attribute.String("amqpwire.state", c.state.String()),
		),
	)
	return ctx, func() { span.End() }
}

// HandleInputCtx wraps HandleInput in an optional span. The core decode
// path (HandleInput itself) stays context-free, matching a synchronous
// byte-in/frame-out contract; tracing is an opt-in layer above it.
func (c *Connection) HandleInputCtx(ctx context.Context, received []byte, out *codec.Frame) (int, error) {
	_, end := c.startSpan(ctx, "handle_input")
	defer end()
	return c.HandleInput(received, out)
}

// SendFrameCtx wraps SendFrame in an optional span.
func (c *Connection) SendFrameCtx(ctx context.Context, frame *codec.Frame) error {
	_, end := c.startSpan(ctx, "send_frame")
	defer end()
	return c.SendFrame(frame)
}
