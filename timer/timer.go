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

// Package timer supplies the monotonic clock source and heartbeat deadline
// arithmetic used by the connection engine. The clock is explicitly
// fallible (the original C engine surfaces a 0 reading from
// amqp_get_monotonic_timestamp as TIMER_FAILURE); this package preserves
// that as an explicit (uint64, bool) result rather than silently
// substituting wall-clock time.
package timer

import "time"

// Source returns the current monotonic timestamp in nanoseconds, and
// whether the read succeeded. It is a function type so tests can simulate
// clock failure without depending on real OS behavior.
type Source func() (ns uint64, ok bool)

// processStart anchors Default on the Unix-nanosecond scale; the time
// elapsed since then is taken from time.Now()'s monotonic reading.
var processStart = time.Now()

// Default is a Source backed by time.Now()'s monotonic reading: it returns
// the Unix time at package initialization plus the monotonic time elapsed
// since, so wall-clock adjustments after start-up do not move it. It never
// fails in practice; Go's runtime clock has no documented failure mode
// analogous to a broken CLOCK_MONOTONIC read, but the fallible signature is
// kept so a caller embedding this engine in an environment with a flaky
// clock source can swap it in.
var Default Source = func() (uint64, bool) {
	return uint64(processStart.UnixNano()) + uint64(time.Since(processStart)), true
}

// NextSendDeadline returns now + interval/2, the point after which the
// engine must send a heartbeat frame to stay within the negotiated
// send-silence budget.
func NextSendDeadline(now uint64, intervalSeconds uint16) uint64 {
	return now + uint64(intervalSeconds)*uint64(time.Second)/2
}

// NextRecvDeadline returns now + 2*interval, the point after which the
// peer is considered dead for having gone silent too long.
func NextRecvDeadline(now uint64, intervalSeconds uint16) uint64 {
	return now + 2*uint64(intervalSeconds)*uint64(time.Second)
}
