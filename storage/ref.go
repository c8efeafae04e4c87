// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/uci-network/ucid/fault"
)

// Lender - lends stored bytes without copying, implemented by
// collections and by their views inside transactions
type Lender[K any] interface {
	Lend(key K, f func(raw []byte) error) (bool, error)
}

// GetRef - compute from the stored bytes of a value in place
//
// raw is only valid during f
func GetRef[K, D any](source Lender[K], key K, f func(raw []byte) (D, error)) (D, bool, error) {
	var result D
	found, err := source.Lend(key, func(raw []byte) error {
		var err error
		result, err = f(raw)
		return err
	})
	return result, found, err
}

// GetRefSlice - compute from a value stored as consecutive fixed
// size elements, the elements alias the stored bytes
func GetRefSlice[K, D any](source Lender[K], key K, size int, f func(elements [][]byte) (D, error)) (D, bool, error) {
	var result D
	found, err := source.Lend(key, func(raw []byte) error {
		if size <= 0 || 0 != len(raw)%size {
			return fault.TruncatedValue
		}
		elements := make([][]byte, 0, len(raw)/size)
		for i := 0; i < len(raw); i += size {
			elements = append(elements, raw[i:i+size:i+size])
		}
		var err error
		result, err = f(elements)
		return err
	})
	return result, found, err
}
