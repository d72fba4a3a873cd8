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

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/amqpwire/common"
)

var (
	framesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "frames_decoded_total",
			Help:      "Frames decoded by HandleInput, by frame type",
		},
		[]string{"frame_type"},
	)

	framesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "frames_sent_total",
			Help:      "Frames transmitted by SendFrame/SendFrameStreaming, by frame type",
		},
		[]string{"frame_type"},
	)

	bytesDecoded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "inbound_bytes_total",
			Help:      "Bytes consumed by HandleInput",
		},
	)

	nextSendHeartbeatGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "next_send_heartbeat_unix_nanos",
			Help:      "Deadline by which a heartbeat frame must be sent",
		},
	)

	nextRecvHeartbeatGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "next_recv_heartbeat_unix_nanos",
			Help:      "Deadline after which the peer is considered dead",
		},
	)
)

func observeDecoded(frameType string, nbytes int) {
	framesDecoded.WithLabelValues(frameType).Inc()
	bytesDecoded.Add(float64(nbytes))
}

func observeSent(frameType string) {
	framesSent.WithLabelValues(frameType).Inc()
}

func observeHeartbeatDeadlines(nextSend, nextRecv uint64) {
	nextSendHeartbeatGauge.Set(float64(nextSend))
	nextRecvHeartbeatGauge.Set(float64(nextRecv))
}
