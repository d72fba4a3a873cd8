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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateSelfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}
}

func listenLoopbackTLS(t *testing.T, cert tls.Certificate) (net.Listener, string, int) {
	t.Helper()
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return ln, host, port
}

func trustPoolFor(cert tls.Certificate) *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(cert.Leaf)
	return pool
}

func TestTLSHandshakeAndSendRecvRoundTrip(t *testing.T) {
	cert := generateSelfSignedCert(t)
	ln, host, port := listenLoopbackTLS(t, cert)
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

	tr := NewTLS(WithTLSConfig(&tls.Config{RootCAs: trustPoolFor(cert)}))
	require.NoError(t, tr.Open(host, port, 2*time.Second))
	defer tr.Destroy()

	require.NoError(t, tr.Send([]byte("tls hello")))

	got := <-serverDone
	assert.Equal(t, "tls hello", string(got))
}

func TestTLSOpenFailsWithUntrustedCert(t *testing.T) {
	cert := generateSelfSignedCert(t)
	ln, host, port := listenLoopbackTLS(t, cert)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	tr := NewTLS() // no RootCAs configured, system pool won't trust a self-signed leaf
	err := tr.Open(host, port, 2*time.Second)
	assert.Error(t, err)
}

func TestTLSScatterSendSendsEachBufferInOrder(t *testing.T) {
	cert := generateSelfSignedCert(t)
	ln, host, port := listenLoopbackTLS(t, cert)
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

	tr := NewTLS(WithTLSConfig(&tls.Config{RootCAs: trustPoolFor(cert)}))
	require.NoError(t, tr.Open(host, port, 2*time.Second))
	defer tr.Destroy()

	require.NoError(t, tr.ScatterSend([][]byte{[]byte("a"), []byte("b"), []byte("c")}))

	got := <-serverDone
	assert.Equal(t, "abc", string(got))
}
