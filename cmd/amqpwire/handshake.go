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

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/amqpwire/codec"
	"github.com/packetd/amqpwire/transport"
)

var handshakeConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// handshakeCmd is a transport/codec-only smoke test: it never touches the
// engine state machine, just enough to confirm a peer speaks AMQP 0-9-1 (or
// report the protocol version it would rather negotiate instead).
var handshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "Send the bare 8-byte protocol header and report the raw reply",
	Run: func(cmd *cobra.Command, args []string) {
		tcp := transport.NewTCP()
		if err := tcp.Open(handshakeConfig.Host, handshakeConfig.Port, handshakeConfig.Timeout); err != nil {
			fmt.Fprintf(os.Stderr, "open failed: %v\n", err)
			os.Exit(1)
		}
		defer tcp.Destroy()

		if err := tcp.Send([]byte{'A', 'M', 'Q', 'P', 0, 0, 9, 1}); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			os.Exit(1)
		}

		reply := make([]byte, 8)
		n, err := tcp.Recv(reply)
		if err != nil {
			fmt.Fprintf(os.Stderr, "recv failed: %v\n", err)
			os.Exit(1)
		}
		if n == 0 {
			fmt.Fprintln(os.Stderr, "peer closed the connection immediately")
			os.Exit(1)
		}

		if codec.IsProtocolHeader(reply[:n]) {
			ph := codec.DecodeProtocolHeader(reply[:n])
			fmt.Printf("peer rejected our version, proposes AMQP %d-%d-%d\n", ph.TransportHigh, ph.VersionMajor, ph.VersionMinor)
			return
		}

		fmt.Printf("peer accepted AMQP 0-9-1: first %d bytes of its reply are a frame header, not a protocol header\n", n)
	},
	Example: "# amqpwire handshake --host localhost --port 5672",
}

func init() {
	handshakeCmd.Flags().StringVar(&handshakeConfig.Host, "host", "127.0.0.1", "Broker host")
	handshakeCmd.Flags().IntVar(&handshakeConfig.Port, "port", 5672, "Broker port")
	handshakeCmd.Flags().DurationVar(&handshakeConfig.Timeout, "timeout", 10*time.Second, "Dial timeout")
	rootCmd.AddCommand(handshakeCmd)
}
