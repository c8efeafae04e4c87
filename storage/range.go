// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
)

// Range - a typed key range, half open [low, high) unless made inclusive
type Range[K any] struct {
	prefix        []byte
	low           *K
	lowExclusive  bool
	high          *K
	highInclusive bool
}

// RangeAll - every key
func RangeAll[K any]() Range[K] {
	return Range[K]{}
}

// RangePrefix - keys whose encoding starts with prefix
func RangePrefix[K any](prefix []byte) Range[K] {
	return Range[K]{prefix: prefix}
}

// RangeFrom - [low, ∞)
func RangeFrom[K any](low K) Range[K] {
	return Range[K]{}.From(low)
}

// RangeAfter - (low, ∞)
func RangeAfter[K any](low K) Range[K] {
	return Range[K]{}.After(low)
}

// RangeBelow - [-∞, high)
func RangeBelow[K any](high K) Range[K] {
	return Range[K]{}.Below(high)
}

// RangeBetween - [low, high)
func RangeBetween[K any](low K, high K) Range[K] {
	return Range[K]{}.From(low).Below(high)
}

// RangeInclusive - [low, high]
func RangeInclusive[K any](low K, high K) Range[K] {
	return Range[K]{}.From(low).Through(high)
}

// From - set an inclusive lower bound
func (r Range[K]) From(low K) Range[K] {
	r.low = &low
	r.lowExclusive = false
	return r
}

// After - set an exclusive lower bound
func (r Range[K]) After(low K) Range[K] {
	r.low = &low
	r.lowExclusive = true
	return r
}

// Below - set an exclusive upper bound
func (r Range[K]) Below(high K) Range[K] {
	r.high = &high
	r.highInclusive = false
	return r
}

// Through - set an inclusive upper bound
func (r Range[K]) Through(high K) Range[K] {
	r.high = &high
	r.highInclusive = true
	return r
}

// convert to column key bytes
//
// the smallest key greater than k is k ∥ 0x00, which turns
// exclusive lower and inclusive upper bounds into half open ones
func (r Range[K]) bytes(codec KeyCodec[K]) (ByteRange, error) {
	var start, limit []byte
	if nil != r.prefix {
		start = r.prefix
		limit = PrefixLimit(r.prefix)
	}

	if nil != r.low {
		low, err := codec.Encode(*r.low)
		if nil != err {
			return ByteRange{}, err
		}
		if r.lowExclusive {
			low = append(low, 0x00)
		}
		if nil == start || bytes.Compare(low, start) > 0 {
			start = low
		}
	}

	if nil != r.high {
		high, err := codec.Encode(*r.high)
		if nil != err {
			return ByteRange{}, err
		}
		if r.highInclusive {
			high = append(high, 0x00)
		}
		if nil == limit || bytes.Compare(high, limit) < 0 {
			limit = high
		}
	}

	return ByteRange{Start: start, Limit: limit}, nil
}

// Empty - true if no key can fall in the range
func (r ByteRange) Empty() bool {
	return nil != r.Limit && bytes.Compare(r.Start, r.Limit) >= 0
}
