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
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/amqpwire/errs"
)

// TLS is an encrypted byte transport over a crypto/tls.Conn. There is no
// process-wide TLS state: every option lives on the *TLS value so that
// concurrent connections with different trust roots never interfere with
// each other.
type TLS struct {
	conn   *tls.Conn
	config *tls.Config
}

// NewTLS returns an unopened TLS transport. Apply TLSOptions before calling
// Open; the transport starts from an empty tls.Config{}, which the options
// modify or (WithTLSConfig) replace.
func NewTLS(opts ...TLSOption) *TLS {
	t := &TLS{config: &tls.Config{}}
	for _, o := range opts {
		o(t)
	}
	return t
}

// TLSOption configures a *TLS before Open.
type TLSOption func(*TLS)

// WithTLSConfig replaces the transport's tls.Config wholesale.
func WithTLSConfig(cfg *tls.Config) TLSOption {
	return func(t *TLS) { t.config = cfg }
}

// WithServerName sets the SNI / certificate verification hostname.
func WithServerName(name string) TLSOption {
	return func(t *TLS) { t.config.ServerName = name }
}

// WithInsecureSkipVerify disables peer certificate verification. Callers
// should reserve this for local testing.
func WithInsecureSkipVerify(skip bool) TLSOption {
	return func(t *TLS) { t.config.InsecureSkipVerify = skip }
}

// WithCACertFile adds the PEM certificates in path to the transport's trust
// root pool.
func WithCACertFile(path string) TLSOption {
	return func(t *TLS) {
		pem, err := os.ReadFile(path)
		if err != nil {
			return
		}
		pool := t.config.RootCAs
		if pool == nil {
			pool = x509.NewCertPool()
		}
		pool.AppendCertsFromPEM(pem)
		t.config.RootCAs = pool
	}
}

// WithClientCertFile loads a client certificate/key pair for mutual TLS.
func WithClientCertFile(certFile, keyFile string) TLSOption {
	return func(t *TLS) {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return
		}
		t.config.Certificates = append(t.config.Certificates, cert)
	}
}

// Open dials host:port and performs the TLS handshake.
func (t *TLS) Open(host string, port int, timeout time.Duration) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	raw, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return errors.Wrapf(errs.SocketError, "tls dial %s: %v", addr, err)
	}

	cfg := t.config
	if cfg.ServerName == "" {
		cfg = cfg.Clone()
		cfg.ServerName = host
	}

	conn := tls.Client(raw, cfg)
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		_ = raw.Close()
		return errors.Wrapf(errs.SSLError, "tls deadline: %v", err)
	}
	if err := conn.Handshake(); err != nil {
		_ = raw.Close()
		return errors.Wrapf(errs.SSLError, "tls handshake %s: %v", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	t.conn = conn
	return nil
}

// Send implements Transport. Unlike the plain TCP transport, a short write
// here is retried rather than treated as final: the underlying record
// layer can return a transient "would block"-equivalent state mid-write,
// mirrored from the C original's amqp_ssl_socket_send_inner retry loop,
// which keeps calling SSL_write on WANT_READ/WANT_WRITE/EINTR until either
// all bytes are sent or slowWriteTimeout has elapsed (reported as
// SocketError). A non-transient error is reported as SSLError.
func (t *TLS) Send(buf []byte) error {
	deadline := time.Now().Add(slowWriteTimeout)
	sent := 0
	for sent < len(buf) {
		n, err := t.conn.Write(buf[sent:])
		sent += n
		if err == nil {
			continue
		}
		if !isTransient(err) {
			return errors.Wrapf(errs.SSLError, "tls send: %v", err)
		}
		if time.Now().After(deadline) {
			return errors.Wrapf(errs.SocketError, "tls send: slow write timed out: %v", err)
		}
	}
	return nil
}

// ScatterSend implements Transport by sending each buffer in turn: the
// record layer's Write has no vectored-I/O equivalent of writev(2), so this
// mirrors the C original's amqp_ssl_socket_writev, which also loops calling
// send_inner once per iovec entry rather than coalescing them.
func (t *TLS) ScatterSend(bufs [][]byte) error {
	for _, b := range bufs {
		if err := t.Send(b); err != nil {
			return err
		}
	}
	return nil
}

// Recv implements Transport.
func (t *TLS) Recv(buf []byte) (int, error) {
	n, err := t.conn.Read(buf)
	if err != nil {
		if err == io.EOF {
			return n, errs.ConnectionClosed
		}
		return n, errors.Wrapf(errs.SSLError, "tls recv: %v", err)
	}
	return n, nil
}

// Close implements Transport.
func (t *TLS) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return errors.Wrapf(errs.SSLError, "tls close: %v", err)
	}
	return nil
}

// Fd implements Transport. It inspects, but never duplicates, the
// underlying file descriptor of the wrapped raw connection.
func (t *TLS) Fd() int {
	sc, ok := t.conn.NetConn().(syscall.Conn)
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
func (t *TLS) SetRecvDeadline(deadline time.Time) error {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return errors.Wrapf(errs.SSLError, "tls set_recv_deadline: %v", err)
	}
	return nil
}

// Destroy implements Transport.
func (t *TLS) Destroy() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}

func isTransient(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
