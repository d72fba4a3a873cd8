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

package confengine

import (
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/packetd/amqpwire/logger"
)

// DialOptions is the typed schema for a single AMQP endpoint to dial:
// transport address, TLS, tuning negotiation defaults, and logging.
type DialOptions struct {
	Host string `config:"host"`
	Port int    `config:"port"`

	// DialTimeout bounds TCP/TLS connect + handshake.
	DialTimeout time.Duration `config:"dialTimeout"`

	// TLS holds a loosely-typed sub-map so callers can omit it entirely for
	// a plaintext connection; DecodeTLS unpacks it into TLSOptions.
	TLS map[string]any `config:"tls"`

	// ChannelMax/FrameMax/HeartbeatSeconds are the client's proposal for
	// Connection.Tune; 0 lets the peer's own default stand.
	ChannelMax       uint16 `config:"channelMax"`
	FrameMax         uint32 `config:"frameMax"`
	HeartbeatSeconds uint16 `config:"heartbeat"`

	Proxy ProxyOptions `config:"proxy"`

	Logger logger.Options `config:"logger"`
}

// TLSOptions is the decoded shape of DialOptions.TLS.
type TLSOptions struct {
	Enabled            bool   `mapstructure:"enabled"`
	ServerName         string `mapstructure:"serverName"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
	CACertFile         string `mapstructure:"caCertFile"`
	CertFile           string `mapstructure:"certFile"`
	KeyFile            string `mapstructure:"keyFile"`
}

// ProxyOptions configures an optional SOCKS5 jump for the TCP dial.
type ProxyOptions struct {
	Enabled  bool   `config:"enabled"`
	Addr     string `config:"addr"`
	Username string `config:"username"`
	Password string `config:"password"`
}

// DecodeTLS unpacks the loosely-typed TLS sub-map into TLSOptions. An empty
// or absent map decodes to the zero value, i.e. TLS disabled.
func (o DialOptions) DecodeTLS() (TLSOptions, error) {
	var out TLSOptions
	if len(o.TLS) == 0 {
		return out, nil
	}
	if err := mapstructure.Decode(o.TLS, &out); err != nil {
		return out, err
	}
	return out, nil
}

// GetDialTimeout applies the same floor the controller config uses for its
// own duration field: a non-positive value is replaced by a sane default
// rather than propagated as a zero timeout.
func (o DialOptions) GetDialTimeout() time.Duration {
	if o.DialTimeout <= 0 {
		return 10 * time.Second
	}
	return o.DialTimeout
}

// GetFrameMax returns the negotiated frame size proposal, or fallback when
// FrameMax is unset.
func (o DialOptions) GetFrameMax(fallback uint32) uint32 {
	if o.FrameMax == 0 {
		return fallback
	}
	return o.FrameMax
}

// LoadDialOptions reads a single "dial" section out of cfg, the analogue of
// controller.Config's top-level sections.
func LoadDialOptions(cfg *Config) (DialOptions, error) {
	var out DialOptions
	err := cfg.UnpackChild("dial", &out)
	return out, err
}
