// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/uci-network/ucid/fault"
)

// Codec - conversion of a value to and from bytes
type Codec[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
}

// KeyCodec - a key conversion whose byte order matches the key order,
// with a human readable text form for the explorer
type KeyCodec[K any] interface {
	Codec[K]
	Format(K) string
	Parse(string) (K, error)
}

var (
	cborEncoder cbor.EncMode
	cborDecoder cbor.DecMode
)

func init() {
	options := cbor.CoreDetEncOptions()
	options.NilContainers = cbor.NilContainerAsEmpty

	var err error
	cborEncoder, err = options.EncMode()
	if nil != err {
		panic(err)
	}
	cborDecoder, err = cbor.DecOptions{}.DecMode()
	if nil != err {
		panic(err)
	}
}

// CBOR - deterministic CBOR value codec
type CBOR[V any] struct{}

// Encode - value to bytes
func (CBOR[V]) Encode(v V) ([]byte, error) {
	buffer, err := cborEncoder.Marshal(v)
	if nil != err {
		return nil, fault.Deser("cbor encode", err)
	}
	return buffer, nil
}

// Decode - bytes to value
func (CBOR[V]) Decode(buffer []byte) (V, error) {
	var v V
	if err := cborDecoder.Unmarshal(buffer, &v); nil != err {
		return v, fault.Deser("cbor decode", err)
	}
	return v, nil
}

// Unit - the value of set-like collections
type Unit struct{}

// UnitCodec - stores nothing
type UnitCodec struct{}

// Encode - empty value
func (UnitCodec) Encode(Unit) ([]byte, error) {
	return []byte{}, nil
}

// Decode - any stored bytes decode to Unit
func (UnitCodec) Decode([]byte) (Unit, error) {
	return Unit{}, nil
}

// BytesCodec - raw values
type BytesCodec struct{}

// Encode - copy of the value
func (BytesCodec) Encode(v []byte) ([]byte, error) {
	return append([]byte{}, v...), nil
}

// Decode - copy of the stored bytes
func (BytesCodec) Decode(buffer []byte) ([]byte, error) {
	return append([]byte{}, buffer...), nil
}

// Uint32Key - big endian 4 byte keys
type Uint32Key struct{}

// Encode - big endian
func (Uint32Key) Encode(k uint32) ([]byte, error) {
	buffer := make([]byte, 4)
	binary.BigEndian.PutUint32(buffer, k)
	return buffer, nil
}

// Decode - big endian
func (Uint32Key) Decode(buffer []byte) (uint32, error) {
	if 4 != len(buffer) {
		return 0, fault.TruncatedValue
	}
	return binary.BigEndian.Uint32(buffer), nil
}

// Format - decimal text
func (Uint32Key) Format(k uint32) string {
	return strconv.FormatUint(uint64(k), 10)
}

// Parse - decimal text
func (Uint32Key) Parse(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if nil != err {
		return 0, fault.InvalidKey
	}
	return uint32(n), nil
}

// Uint64Key - big endian 8 byte keys
type Uint64Key struct{}

// Encode - big endian
func (Uint64Key) Encode(k uint64) ([]byte, error) {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, k)
	return buffer, nil
}

// Decode - big endian
func (Uint64Key) Decode(buffer []byte) (uint64, error) {
	if 8 != len(buffer) {
		return 0, fault.TruncatedValue
	}
	return binary.BigEndian.Uint64(buffer), nil
}

// Format - decimal text
func (Uint64Key) Format(k uint64) string {
	return strconv.FormatUint(k, 10)
}

// Parse - decimal text
func (Uint64Key) Parse(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if nil != err {
		return 0, fault.InvalidKey
	}
	return n, nil
}

// Int64Key - signed keys, sign bit flipped so that byte order is numeric order
type Int64Key struct{}

// Encode - flipped big endian
func (Int64Key) Encode(k int64) ([]byte, error) {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, uint64(k)^(1<<63))
	return buffer, nil
}

// Decode - flipped big endian
func (Int64Key) Decode(buffer []byte) (int64, error) {
	if 8 != len(buffer) {
		return 0, fault.TruncatedValue
	}
	return int64(binary.BigEndian.Uint64(buffer) ^ (1 << 63)), nil
}

// Format - decimal text
func (Int64Key) Format(k int64) string {
	return strconv.FormatInt(k, 10)
}

// Parse - decimal text
func (Int64Key) Parse(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if nil != err {
		return 0, fault.InvalidKey
	}
	return n, nil
}

// StringKey - UTF-8 keys
type StringKey struct{}

// Encode - raw bytes
func (StringKey) Encode(k string) ([]byte, error) {
	return []byte(k), nil
}

// Decode - raw bytes
func (StringKey) Decode(buffer []byte) (string, error) {
	return string(buffer), nil
}

// Format - the key itself
func (StringKey) Format(k string) string {
	return k
}

// Parse - the key itself
func (StringKey) Parse(s string) (string, error) {
	return s, nil
}
