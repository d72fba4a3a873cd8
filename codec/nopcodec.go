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

package codec

// NopCodec is a MethodCodec/PropertiesCodec stand-in that treats the
// method/properties body as an opaque byte string: decode copies it into
// arena storage and hands that slice back as the "decoded" value, encode
// writes a previously-decoded []byte straight back out. It proves the
// frame/arena/footer machinery in tests without depending on the real AMQP
// class-method table, which is explicitly out of scope for this engine
// (see spec.md §1).
type NopCodec struct{}

// DecodeMethod implements MethodCodec.
func (NopCodec) DecodeMethod(_ uint32, pool Allocator, b []byte) (any, error) {
	cp := pool.AllocBytes(len(b))
	copy(cp, b)
	return cp, nil
}

// EncodeMethod implements MethodCodec.
func (NopCodec) EncodeMethod(_ uint32, decoded any, out []byte) (int, error) {
	b, _ := decoded.([]byte)
	return copy(out, b), nil
}

// DecodeProperties implements PropertiesCodec.
func (c NopCodec) DecodeProperties(classID uint16, pool Allocator, b []byte) (any, error) {
	return c.DecodeMethod(uint32(classID), pool, b)
}

// EncodeProperties implements PropertiesCodec.
func (c NopCodec) EncodeProperties(classID uint16, decoded any, out []byte) (int, error) {
	return c.EncodeMethod(uint32(classID), decoded, out)
}
