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

// Package errs defines the status-code taxonomy shared by the frame codec,
// arena, transport and connection engine.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a status returned by engine operations. Zero value is OK.
type Code int

const (
	// OK indicates success.
	OK Code = 0

	// NoMemory means an allocation failed; the operation was aborted and
	// state is unchanged on the decode path.
	NoMemory Code = -1

	// BadAMQPData means an oversized frame length or a missing frame-end
	// marker was observed; the connection is no longer usable.
	BadAMQPData Code = -2

	// TimerFailure means the monotonic clock source returned a failure.
	TimerFailure Code = -3

	// SocketError means a transport-level failure, including a slow-write
	// timeout.
	SocketError Code = -4

	// ConnectionClosed means the peer closed the byte stream.
	ConnectionClosed Code = -5

	// SSLError means TLS session setup or I/O failed fatally.
	SSLError Code = -6

	// UnexpectedState means a body source was exhausted before its
	// declared length was reached.
	UnexpectedState Code = -7

	// InvalidParameter means a nil transport, a wrong frame type, or an
	// unknown outbound frame type was supplied.
	InvalidParameter Code = -8
)

var names = map[Code]string{
	OK:               "OK",
	NoMemory:         "NO_MEMORY",
	BadAMQPData:      "BAD_AMQP_DATA",
	TimerFailure:     "TIMER_FAILURE",
	SocketError:      "SOCKET_ERROR",
	ConnectionClosed: "CONNECTION_CLOSED",
	SSLError:         "SSL_ERROR",
	UnexpectedState:  "UNEXPECTED_STATE",
	InvalidParameter: "INVALID_PARAMETER",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN_CODE(%d)", int(c))
}

// Error implements error so a Code can be returned/wrapped directly.
func (c Code) Error() string {
	return c.String()
}

// New wraps c with a formatted message, preserving c as the error's Cause
// so that Is(err, c) still matches after wrapping.
func New(c Code, format string, args ...any) error {
	return errors.Wrap(c, fmt.Sprintf(format, args...))
}

// Is reports whether err carries code c, either directly or as a wrapped
// cause.
func Is(err error, c Code) bool {
	if err == nil {
		return c == OK
	}
	return errors.Cause(err) == c
}

// Abort is the Go analogue of the C original's amqp_abort: a programmer
// error (e.g. Tune or ReleaseBuffers called outside IDLE) that terminates
// the current goroutine with a diagnostic rather than returning an error
// code. Callers embedding the engine in a long-lived process may recover
// at their outermost boundary; the engine itself never does.
func Abort(format string, args ...any) {
	panic(fmt.Sprintf("amqpwire: programming error: "+format, args...))
}
