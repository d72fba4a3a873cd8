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

// Package transport implements the byte-transport capability set the
// connection engine drives: send, scatter-send, recv, open, close, get-fd,
// destroy. Two concrete transports are provided: plain TCP and TLS.
package transport

import (
	"net"
	"time"

	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/packetd/amqpwire/errs"
)

// Transport is the capability set the connection engine requires from a
// byte transport. It deliberately says nothing about framing: it moves
// bytes, nothing more.
type Transport interface {
	// Send transmits buf in full or returns an error; a partial write is
	// never reported as success.
	Send(buf []byte) error

	// ScatterSend transmits the concatenation of bufs without copying them
	// into one contiguous buffer, used for zero-copy body-frame sends.
	ScatterSend(bufs [][]byte) error

	// Recv reads up to len(buf) bytes into buf. The TCP and TLS transports
	// report an orderly close by the peer as an errs.ConnectionClosed
	// error.
	Recv(buf []byte) (int, error)

	// Open establishes the underlying connection.
	Open(host string, port int, timeout time.Duration) error

	// Close closes the underlying connection.
	Close() error

	// Fd returns the OS file descriptor backing the connection, or -1 if
	// unavailable.
	Fd() int

	// Destroy releases any resources Close didn't already release. Must
	// only be called when no other Transport method is in flight.
	Destroy()

	// SetRecvDeadline bounds how long the next Recv call may block, so a
	// caller can interleave heartbeat sends and signal checks with a
	// blocking read. A zero Time disables the deadline.
	SetRecvDeadline(t time.Time) error
}

// IsTimeout reports whether err is a Recv/Send failure caused by a
// SetRecvDeadline (or OS write) deadline expiring rather than a real
// connection failure.
func IsTimeout(err error) bool {
	var nerr net.Error
	return stderrors.As(err, &nerr) && nerr.Timeout()
}

// slowWriteTimeout bounds how long a single Send/ScatterSend call may spend
// retrying a transient, no-progress partial write before giving up with
// SocketError — mirrors the ~1 second cap in the C original's
// amqp_ssl_socket_send_inner.
const slowWriteTimeout = time.Second

func wrapSocketErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(errs.SocketError, "%s: %v", op, err)
}
