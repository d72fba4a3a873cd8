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

package pamqp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortString(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func TestDecodeMethodBasicPublish(t *testing.T) {
	// Basic.Publish args: reserved-1 (uint16), exchange, routing-key, ...
	b := append([]byte{0x00, 0x00}, shortString("my-exchange")...)
	b = append(b, shortString("my-key")...)

	methodID := uint32(classBasic)<<16 | 40
	out, err := NamedCodec{}.DecodeMethod(methodID, nil, b)
	require.NoError(t, err)

	dm, ok := out.(*DecodedMethod)
	require.True(t, ok)
	assert.Equal(t, "Basic", dm.Class)
	assert.Equal(t, "Publish", dm.Method)
	require.NotNil(t, dm.Packet)
	assert.Equal(t, "my-exchange", dm.Packet.ExchangeName)
	assert.Equal(t, "my-key", dm.Packet.RoutingKey)
}

func TestDecodeMethodQueueDeclare(t *testing.T) {
	b := append([]byte{0x00, 0x00}, shortString("my-queue")...)

	methodID := uint32(classQueue)<<16 | 10
	out, err := NamedCodec{}.DecodeMethod(methodID, nil, b)
	require.NoError(t, err)

	dm := out.(*DecodedMethod)
	assert.Equal(t, "Queue", dm.Class)
	assert.Equal(t, "Declare", dm.Method)
	assert.Equal(t, "my-queue", dm.Packet.QueueName)
}

func TestDecodeMethodChannelCloseReportsErrCode(t *testing.T) {
	b := []byte{0x01, 0x96} // 406 PRECONDITION_FAILED
	methodID := uint32(classChannel)<<16 | 40
	out, err := NamedCodec{}.DecodeMethod(methodID, nil, b)
	require.NoError(t, err)

	dm := out.(*DecodedMethod)
	assert.Equal(t, "Channel", dm.Class)
	assert.Equal(t, "Close", dm.Method)
	assert.Equal(t, "PRECONDITION_FAILED", dm.ErrCode)
	assert.Nil(t, dm.Packet)
}

func TestDecodeMethodWithoutFieldRequestStillResolvesName(t *testing.T) {
	methodID := uint32(classConnection)<<16 | 30 // Tune, no field request entry
	out, err := NamedCodec{}.DecodeMethod(methodID, nil, nil)
	require.NoError(t, err)

	dm := out.(*DecodedMethod)
	assert.Equal(t, "Connection", dm.Class)
	assert.Equal(t, "Tune", dm.Method)
	assert.Nil(t, dm.Packet)
}

func TestDecodeMethodUnknownClassMethod(t *testing.T) {
	_, err := NamedCodec{}.DecodeMethod(uint32(0xFFFF)<<16|0xFFFF, nil, nil)
	assert.Error(t, err)
}

func TestDecodeMethodTruncatedArgsIsError(t *testing.T) {
	methodID := uint32(classQueue)<<16 | 11 // Declare-Ok: opQueueName only
	_, err := NamedCodec{}.DecodeMethod(methodID, nil, []byte{0x05, 'a', 'b'})
	assert.Error(t, err)
}

func TestEncodeMethodRequiresRawBytes(t *testing.T) {
	n, err := NamedCodec{}.EncodeMethod(0, "not bytes", make([]byte, 8))
	assert.Error(t, err)
	assert.Equal(t, 0, n)

	out := make([]byte, 8)
	n, err = NamedCodec{}.EncodeMethod(0, []byte{1, 2, 3}, out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{1, 2, 3}, out[:3])
}

func TestDecodePropertiesResolvesClassName(t *testing.T) {
	out, err := NamedCodec{}.DecodeProperties(classBasic, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Basic", out.(*DecodedProperties).Class)
}

func TestDecodePropertiesUnknownClass(t *testing.T) {
	_, err := NamedCodec{}.DecodeProperties(0xFFFF, nil, nil)
	assert.Error(t, err)
}

func TestMatchErrCodeUnknownFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", matchErrCode(9999))
	assert.Equal(t, "NOT_FOUND", matchErrCode(404))
}
