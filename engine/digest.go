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
	"github.com/cespare/xxhash/v2"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/amqpwire/codec"
)

// digestFrame returns a cheap fingerprint of a decoded frame, logged at
// debug level so duplicate or reordered frames are easy to spot across a
// noisy transcript without dumping full payloads.
func digestFrame(f *codec.Frame) uint64 {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteByte(byte(f.Type))
	_, _ = buf.Write([]byte{byte(f.Channel >> 8), byte(f.Channel)})

	switch f.Type {
	case codec.FrameTypeMethod:
		if f.Method != nil {
			_, _ = buf.Write([]byte{byte(f.Method.ID >> 24), byte(f.Method.ID >> 16), byte(f.Method.ID >> 8), byte(f.Method.ID)})
		}
	case codec.FrameTypeHeader:
		if f.Properties != nil {
			buf.Write(f.Properties.Raw)
		}
	case codec.FrameTypeBody:
		buf.Write(f.Body)
	}

	return xxhash.Sum64(buf.Bytes())
}
