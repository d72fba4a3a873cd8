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
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/packetd/amqpwire/codec"
	"github.com/packetd/amqpwire/errs"
)

var (
	errInvalidBytes       = errors.New("pamqp: invalid argument bytes")
	errDecodeString       = errors.New("pamqp: decode short string failed")
	errUnknownClassMethod = errors.New("pamqp: unknown class/method id")
)

// Packet holds the handful of AMQP argument fields worth surfacing without
// a full schema decoder: the names used for routing.
type Packet struct {
	ExchangeName string
	RoutingKey   string
	QueueName    string
}

// DecodedMethod is what NamedCodec.DecodeMethod returns.
type DecodedMethod struct {
	NamedClassMethod
	Packet  *Packet // nil if this method has no field-request entry or its entry reads a reply code
	ErrCode string  // set only for Connection.Close / Channel.Close
}

// NamedCodec implements codec.MethodCodec and codec.PropertiesCodec by
// resolving the AMQP 0-9-1 class/method table and extracting routing
// fields, without decoding a method's full argument layout or any content
// property. A decode is therefore one-way: Encode only accepts the raw
// []byte form, the same "encode is a passthrough of what you already
// serialized yourself" contract as codec.NopCodec.
type NamedCodec struct{}

// DecodeMethod implements codec.MethodCodec. The returned *DecodedMethod
// and the strings/Packet it holds are independent Go allocations, already
// detached from b's arena-backed storage by the time this returns, so no
// use of pool is needed here (unlike codec.NopCodec, which keeps the raw
// bytes themselves alive).
func (NamedCodec) DecodeMethod(methodID uint32, _ codec.Allocator, b []byte) (any, error) {
	cm := classMethod{ClassID: uint16(methodID >> 16), MethodID: uint16(methodID)}
	name, ok := classMethods[cm]
	if !ok {
		return nil, errors.Wrapf(errUnknownClassMethod, "class=%d method=%d", cm.ClassID, cm.MethodID)
	}

	dm := &DecodedMethod{NamedClassMethod: NamedClassMethod{Class: classNames[cm.ClassID], Method: name}}

	fr, ok := fieldRequestMap[cm]
	if !ok {
		return dm, nil
	}

	pkt, errCode, err := decodeFieldRequests(b, fr)
	if err != nil {
		return nil, err
	}
	dm.Packet = pkt
	dm.ErrCode = errCode
	return dm, nil
}

// EncodeMethod implements codec.MethodCodec. Only a raw, already-serialized
// []byte can round-trip back to the wire: DecodeMethod discards everything
// it doesn't name a field request for, so a DecodedMethod can't be
// re-encoded losslessly.
func (NamedCodec) EncodeMethod(_ uint32, decoded any, out []byte) (int, error) {
	b, ok := decoded.([]byte)
	if !ok {
		return 0, errs.New(errs.InvalidParameter, "pamqp: EncodeMethod requires a raw []byte, got %T", decoded)
	}
	return copy(out, b), nil
}

// DecodedProperties is what NamedCodec.DecodeProperties returns. Content
// properties (headers, delivery-mode, content-type, ...) are never decoded
// field-by-field, the same trade the class/method table makes for
// arguments outside fieldRequestMap.
type DecodedProperties struct {
	Class string
}

// DecodeProperties implements codec.PropertiesCodec.
func (NamedCodec) DecodeProperties(classID uint16, _ codec.Allocator, _ []byte) (any, error) {
	name, ok := classNames[classID]
	if !ok {
		return nil, errors.Wrapf(errUnknownClassMethod, "class=%d", classID)
	}
	return &DecodedProperties{Class: name}, nil
}

// EncodeProperties implements codec.PropertiesCodec, with the same
// raw-bytes-only contract as EncodeMethod.
func (NamedCodec) EncodeProperties(_ uint16, decoded any, out []byte) (int, error) {
	b, ok := decoded.([]byte)
	if !ok {
		return 0, errs.New(errs.InvalidParameter, "pamqp: EncodeProperties requires a raw []byte, got %T", decoded)
	}
	return copy(out, b), nil
}

// decodeFieldRequests walks fr.ops over b, extracting exchange/queue/
// routing-key short strings and/or a trailing reply code, skipping
// everything else at its fixed width.
func decodeFieldRequests(b []byte, fr fieldRequest) (*Packet, string, error) {
	var skip int
	var nothing, exchangeName, routingKey, queueName string
	var errCode uint16
	var sawErrCode bool

	decodeString := func(p *string) error {
		if len(b) <= skip {
			return errInvalidBytes
		}
		s, n, err := decodeShortString(b[skip:])
		if err != nil {
			return err
		}
		*p = s
		skip += n
		return nil
	}

	for _, o := range fr.ops {
		switch o {
		case opSkipUint8:
			skip++
		case opSkipUint16:
			skip += 2
		case opSkipUint64:
			skip += 8
		case opSkipShortString:
			if err := decodeString(&nothing); err != nil {
				return nil, "", err
			}
		case opExchangeName:
			if err := decodeString(&exchangeName); err != nil {
				return nil, "", err
			}
		case opRoutingKey:
			if err := decodeString(&routingKey); err != nil {
				return nil, "", err
			}
		case opQueueName:
			if err := decodeString(&queueName); err != nil {
				return nil, "", err
			}
		case opErrCode:
			if skip+2 > len(b) {
				return nil, "", errInvalidBytes
			}
			errCode = binary.BigEndian.Uint16(b[skip : skip+2])
			sawErrCode = true
			skip += 2
		}
	}

	if skip > len(b) {
		return nil, "", errInvalidBytes
	}

	if sawErrCode {
		return nil, matchErrCode(errCode), nil
	}
	return &Packet{ExchangeName: exchangeName, RoutingKey: routingKey, QueueName: queueName}, "", nil
}

func decodeShortString(b []byte) (string, int, error) {
	if len(b) < 1 {
		return "", 0, errDecodeString
	}
	n := b[0]
	if len(b) < 1+int(n) || 1+int(n) > math.MaxUint8 {
		return "", 0, errDecodeString
	}
	return string(b[1 : 1+n]), 1 + int(n), nil
}
