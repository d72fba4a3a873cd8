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
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/packetd/amqpwire/codec"
	"github.com/packetd/amqpwire/engine"
	"github.com/packetd/amqpwire/internal/sigs"
	"github.com/packetd/amqpwire/logger"
	"github.com/packetd/amqpwire/protocol/pamqp"
	"github.com/packetd/amqpwire/transport"
)

var watchConfig struct {
	ConfigPath string
	Host       string
	Port       int
	TLS        bool
	Insecure   bool
	Timeout    time.Duration
	PollEvery  time.Duration
}

// watchCmd keeps a connection open after the handshake, printing every
// frame the broker sends and sending a heartbeat of its own whenever
// Connection.NextSendHeartbeat comes due, until SIGINT/SIGTERM.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Hold a connection open, servicing heartbeats and printing inbound frames until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := maxprocs.Set(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to set GOMAXPROCS: %v\n", err)
		}

		opts, err := loadDialOptionsFrom(watchConfig.ConfigPath, watchConfig.Host, watchConfig.Port, watchConfig.TLS, watchConfig.Insecure, watchConfig.Timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load dial options: %v\n", err)
			os.Exit(1)
		}
		logger.SetOptions(opts.Logger)

		t, err := buildTransport(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build transport: %v\n", err)
			os.Exit(1)
		}
		if err := t.Open(opts.Host, opts.Port, opts.GetDialTimeout()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open connection to %s:%d: %v\n", opts.Host, opts.Port, err)
			os.Exit(1)
		}
		defer t.Destroy()

		conn := engine.New(
			engine.WithTransport(t),
			engine.WithMethodCodec(pamqp.NamedCodec{}),
			engine.WithPropertiesCodec(pamqp.NamedCodec{}),
		)
		defer conn.Destroy()

		if err := t.Send([]byte{'A', 'M', 'Q', 'P', 0, 0, 9, 1}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send protocol header: %v\n", err)
			os.Exit(1)
		}

		stop := sigs.Terminate()
		buf := conn.StagingBuffer()
		var frame codec.Frame

		for {
			select {
			case <-stop:
				fmt.Fprintln(os.Stderr, "interrupted, closing")
				return
			default:
			}

			if deadline := conn.NextSendHeartbeat(); deadline != 0 && uint64(time.Now().UnixNano()) >= deadline {
				if err := conn.SendFrame(&codec.Frame{Type: codec.FrameTypeHeartbeat, Channel: 0}); err != nil {
					fmt.Fprintf(os.Stderr, "failed to send heartbeat: %v\n", err)
					return
				}
			}

			if err := t.SetRecvDeadline(time.Now().Add(watchConfig.PollEvery)); err != nil {
				fmt.Fprintf(os.Stderr, "failed to set recv deadline: %v\n", err)
				return
			}

			n, err := t.Recv(buf)
			if err != nil {
				if transport.IsTimeout(err) {
					continue
				}
				fmt.Fprintf(os.Stderr, "recv failed: %v\n", err)
				return
			}
			if n == 0 {
				fmt.Fprintln(os.Stderr, "peer closed the connection")
				return
			}

			received := buf[:n]
			for len(received) > 0 {
				consumed, err := conn.HandleInput(received, &frame)
				if err != nil {
					fmt.Fprintf(os.Stderr, "decode failed: %v\n", err)
					return
				}
				received = received[consumed:]
				if frame.Type != codec.FrameTypeNone {
					printFrame(&frame)
					conn.MaybeReleaseBuffers()
					frame = codec.Frame{}
				}
			}
		}
	},
	Example: "# amqpwire watch --host localhost --port 5672",
}

func init() {
	watchCmd.Flags().StringVar(&watchConfig.ConfigPath, "config", "", "Optional YAML config with a top-level 'dial' section; when given, the connection flags below are not applied")
	watchCmd.Flags().StringVar(&watchConfig.Host, "host", "127.0.0.1", "Broker host")
	watchCmd.Flags().IntVar(&watchConfig.Port, "port", 5672, "Broker port")
	watchCmd.Flags().BoolVar(&watchConfig.TLS, "tls", false, "Dial over TLS")
	watchCmd.Flags().BoolVar(&watchConfig.Insecure, "insecure", false, "Skip TLS certificate verification")
	watchCmd.Flags().DurationVar(&watchConfig.Timeout, "timeout", 10*time.Second, "Dial and handshake timeout")
	watchCmd.Flags().DurationVar(&watchConfig.PollEvery, "poll", time.Second, "How often to wake up and check the heartbeat deadline")
	rootCmd.AddCommand(watchCmd)
}
