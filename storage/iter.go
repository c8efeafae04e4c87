// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/uci-network/ucid/fault"
)

// Entry - a decoded key/value pair
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Iter - a lazily evaluated range scan
type Iter[K, V any] struct {
	keys    KeyCodec[K]
	values  Codec[V]
	r       Range[K]
	reverse bool
	step    int
	open    func(r ByteRange, reverse bool) Iterator
	guard   func(body func() error) error
}

// Reverse - walk from the high end of the range
func (it *Iter[K, V]) Reverse() *Iter[K, V] {
	it.reverse = !it.reverse
	return it
}

// StepBy - only yield every n-th item, starting with the first
func (it *Iter[K, V]) StepBy(n int) *Iter[K, V] {
	if n < 1 {
		n = 1
	}
	it.step = n
	return it
}

// walk raw items until f returns false or an error
func (it *Iter[K, V]) walk(f func(key []byte, value []byte) (bool, error)) error {
	r, err := it.r.bytes(it.keys)
	if nil != err {
		return err
	}
	if r.Empty() {
		return nil
	}

	return it.guard(func() error {
		iter := it.open(r, it.reverse)
		defer iter.Release()

		n := 0
	iterating:
		for iter.Next() {
			if 0 != n%it.step {
				n += 1
				continue iterating
			}
			n += 1
			more, err := f(iter.Key(), iter.Value())
			if nil != err {
				return err
			}
			if !more {
				break iterating
			}
		}
		return fault.Backend(iter.Error())
	})
}

// ForEach - decode every item, stop when f returns false
func (it *Iter[K, V]) ForEach(f func(key K, value V) (bool, error)) error {
	return it.walk(func(k []byte, v []byte) (bool, error) {
		key, err := it.keys.Decode(k)
		if nil != err {
			return false, err
		}
		value, err := it.values.Decode(v)
		if nil != err {
			return false, err
		}
		return f(key, value)
	})
}

// Keys - decode only the keys
func (it *Iter[K, V]) Keys(f func(key K) (bool, error)) error {
	return it.walk(func(k []byte, _ []byte) (bool, error) {
		key, err := it.keys.Decode(k)
		if nil != err {
			return false, err
		}
		return f(key)
	})
}

// Values - decode only the values
func (it *Iter[K, V]) Values(f func(value V) (bool, error)) error {
	return it.walk(func(_ []byte, v []byte) (bool, error) {
		value, err := it.values.Decode(v)
		if nil != err {
			return false, err
		}
		return f(value)
	})
}

// Collect - up to limit items, all of them when limit ≤ 0
func (it *Iter[K, V]) Collect(limit int) ([]Entry[K, V], error) {
	result := []Entry[K, V]{}
	err := it.ForEach(func(key K, value V) (bool, error) {
		result = append(result, Entry[K, V]{Key: key, Value: value})
		return limit <= 0 || len(result) < limit, nil
	})
	return result, err
}

// First - the first item, if any
func (it *Iter[K, V]) First() (Entry[K, V], bool, error) {
	entries, err := it.Collect(1)
	if nil != err || 0 == len(entries) {
		return Entry[K, V]{}, false, err
	}
	return entries[0], true, nil
}
