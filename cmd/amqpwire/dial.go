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
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/packetd/amqpwire/codec"
	"github.com/packetd/amqpwire/confengine"
	"github.com/packetd/amqpwire/engine"
	"github.com/packetd/amqpwire/logger"
	"github.com/packetd/amqpwire/protocol/pamqp"
	"github.com/packetd/amqpwire/transport"
)

var dialConfig struct {
	ConfigPath string
	Host       string
	Port       int
	TLS        bool
	Insecure   bool
	Timeout    time.Duration
}

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Open a transport, send the protocol header, and print the server's reply frame",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := maxprocs.Set(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to set GOMAXPROCS: %v\n", err)
		}

		opts, err := loadDialOptions()
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

		buf := conn.StagingBuffer()
		var frame codec.Frame
		for frame.Type == codec.FrameTypeNone {
			n, err := t.Recv(buf)
			if err != nil {
				fmt.Fprintf(os.Stderr, "recv failed: %v\n", err)
				os.Exit(1)
			}
			if n == 0 {
				fmt.Fprintln(os.Stderr, "peer closed before completing the handshake")
				os.Exit(1)
			}

			received := buf[:n]
			for len(received) > 0 {
				consumed, err := conn.HandleInput(received, &frame)
				if err != nil {
					fmt.Fprintf(os.Stderr, "handshake decode failed: %v\n", err)
					os.Exit(1)
				}
				received = received[consumed:]
				if frame.Type != codec.FrameTypeNone {
					break
				}
			}
		}

		printFrame(&frame)
	},
	Example: "# amqpwire dial --host localhost --port 5672\n  # amqpwire dial --host broker.example.com --port 5671 --tls",
}

func init() {
	dialCmd.Flags().StringVar(&dialConfig.ConfigPath, "config", "", "Optional YAML config with a top-level 'dial' section; when given, the connection flags below are not applied")
	dialCmd.Flags().StringVar(&dialConfig.Host, "host", "127.0.0.1", "Broker host")
	dialCmd.Flags().IntVar(&dialConfig.Port, "port", 5672, "Broker port")
	dialCmd.Flags().BoolVar(&dialConfig.TLS, "tls", false, "Dial over TLS")
	dialCmd.Flags().BoolVar(&dialConfig.Insecure, "insecure", false, "Skip TLS certificate verification")
	dialCmd.Flags().DurationVar(&dialConfig.Timeout, "timeout", 10*time.Second, "Dial and handshake timeout")
	rootCmd.AddCommand(dialCmd)
}

func loadDialOptions() (confengine.DialOptions, error) {
	return loadDialOptionsFrom(dialConfig.ConfigPath, dialConfig.Host, dialConfig.Port, dialConfig.TLS, dialConfig.Insecure, dialConfig.Timeout)
}

// loadDialOptionsFrom builds DialOptions for dial and watch. Without a
// config file the flag values are used; with one, the options come from
// its "dial" section alone and the flag values are not overlaid on it.
func loadDialOptionsFrom(configPath, host string, port int, tlsEnabled, insecure bool, timeout time.Duration) (confengine.DialOptions, error) {
	opts := confengine.DialOptions{
		Host:        host,
		Port:        port,
		DialTimeout: timeout,
		Logger:      logger.Options{Stdout: true, Level: "info"},
	}
	if configPath == "" {
		if tlsEnabled {
			opts.TLS = map[string]any{"enabled": true, "insecureSkipVerify": insecure}
		}
		return opts, nil
	}

	cfg, err := confengine.LoadConfigPath(configPath)
	if err != nil {
		return opts, err
	}
	return confengine.LoadDialOptions(cfg)
}

func buildTransport(opts confengine.DialOptions) (transport.Transport, error) {
	tlsOpts, err := opts.DecodeTLS()
	if err != nil {
		return nil, err
	}
	if !tlsOpts.Enabled {
		return transport.NewTCP(), nil
	}

	tlsOptions := []transport.TLSOption{
		transport.WithServerName(tlsOpts.ServerName),
		transport.WithInsecureSkipVerify(tlsOpts.InsecureSkipVerify),
	}
	if tlsOpts.CACertFile != "" {
		tlsOptions = append(tlsOptions, transport.WithCACertFile(tlsOpts.CACertFile))
	}
	if tlsOpts.CertFile != "" {
		tlsOptions = append(tlsOptions, transport.WithClientCertFile(tlsOpts.CertFile, tlsOpts.KeyFile))
	}
	if tlsOpts.ServerName == "" && !tlsOpts.InsecureSkipVerify {
		tlsOptions = append(tlsOptions, transport.WithTLSConfig(&tls.Config{ServerName: opts.Host}))
	}
	return transport.NewTLS(tlsOptions...), nil
}

func printFrame(f *codec.Frame) {
	if jsonOutput {
		b, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal frame: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(b))
		return
	}

	switch f.Type {
	case codec.FrameTypeProtocolHeader:
		fmt.Printf("protocol mismatch: server wants AMQP %d-%d-%d\n", f.ProtocolHeader.TransportHigh, f.ProtocolHeader.VersionMajor, f.ProtocolHeader.VersionMinor)
	case codec.FrameTypeMethod:
		if dm, ok := f.Method.Decoded.(*pamqp.DecodedMethod); ok {
			fmt.Printf("channel=%d %s.%s\n", f.Channel, dm.Class, dm.Method)
			if dm.Packet != nil {
				fmt.Printf("  exchange=%q routing_key=%q queue=%q\n", dm.Packet.ExchangeName, dm.Packet.RoutingKey, dm.Packet.QueueName)
			}
			if dm.ErrCode != "" {
				fmt.Printf("  reply_code=%s\n", dm.ErrCode)
			}
			return
		}
		fmt.Printf("channel=%d method_id=%d\n", f.Channel, f.Method.ID)
	default:
		fmt.Printf("channel=%d type=%s\n", f.Channel, f.Type)
	}
}
