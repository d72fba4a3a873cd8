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
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/amqpwire/errs"
)

func listenLoopback(t *testing.T) (net.Listener, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return ln, host, port
}

func TestTCPSendRecvRoundTrip(t *testing.T) {
	ln, host, port := listenLoopback(t)
	defer ln.Close()

	serverDone := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- nil
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		serverDone <- buf[:n]
	}()

	tr := NewTCP()
	require.NoError(t, tr.Open(host, port, time.Second))
	defer tr.Destroy()

	require.NoError(t, tr.Send([]byte("hello amqp")))

	got := <-serverDone
	assert.Equal(t, "hello amqp", string(got))
}

func TestTCPScatterSendConcatenates(t *testing.T) {
	ln, host, port := listenLoopback(t)
	defer ln.Close()

	serverDone := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- nil
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		serverDone <- buf[:n]
	}()

	tr := NewTCP()
	require.NoError(t, tr.Open(host, port, time.Second))
	defer tr.Destroy()

	require.NoError(t, tr.ScatterSend([][]byte{[]byte("frame-"), []byte("body-"), []byte("tail")}))

	got := <-serverDone
	assert.Equal(t, "frame-body-tail", string(got))
}

func TestTCPRecvReportsPeerClose(t *testing.T) {
	ln, host, port := listenLoopback(t)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	tr := NewTCP()
	require.NoError(t, tr.Open(host, port, time.Second))
	defer tr.Destroy()

	buf := make([]byte, 16)
	_, err := tr.Recv(buf)
	assert.True(t, errs.Is(err, errs.ConnectionClosed))
}

func TestTCPOpenFailureWrapsSocketError(t *testing.T) {
	tr := NewTCP()
	err := tr.Open("127.0.0.1", 1, 100*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.SocketError))
}

func TestTCPFdNonNegativeAfterOpen(t *testing.T) {
	ln, host, port := listenLoopback(t)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			buf := make([]byte, 1)
			_, _ = conn.Read(buf)
		}
	}()

	tr := NewTCP()
	require.NoError(t, tr.Open(host, port, time.Second))
	defer tr.Destroy()

	assert.GreaterOrEqual(t, tr.Fd(), 0)
}
