// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
)

// mergedIterator - committed keys overlaid by staged writes
//
// staged values carry a one byte marker, deleted keys are skipped
// and a staged key hides the committed one
type mergedIterator struct {
	base    Iterator
	staged  Iterator
	reverse bool

	started  bool
	baseOK   bool
	stagedOK bool

	key   []byte
	value []byte
}

func newMergedIterator(base Iterator, staged Iterator, reverse bool) *mergedIterator {
	return &mergedIterator{
		base:    base,
		staged:  staged,
		reverse: reverse,
	}
}

func (m *mergedIterator) Next() bool {
	if !m.started {
		m.started = true
		m.baseOK = m.base.Next()
		m.stagedOK = m.staged.Next()
	}

	for m.baseOK || m.stagedOK {
		useStaged := false
		skipBase := false
		switch {
		case !m.stagedOK:
		case !m.baseOK:
			useStaged = true
		default:
			c := bytes.Compare(m.base.Key(), m.staged.Key())
			if m.reverse {
				c = -c
			}
			if c >= 0 {
				useStaged = true
				skipBase = 0 == c
			}
		}

		if !useStaged {
			m.key = append(m.key[:0], m.base.Key()...)
			m.value = append(m.value[:0], m.base.Value()...)
			m.baseOK = m.base.Next()
			return true
		}

		v := m.staged.Value()
		live := len(v) > 0 && overlayPresent == v[0]
		if live {
			m.key = append(m.key[:0], m.staged.Key()...)
			m.value = append(m.value[:0], v[1:]...)
		}
		m.stagedOK = m.staged.Next()
		if skipBase {
			m.baseOK = m.base.Next()
		}
		if live {
			return true
		}
	}
	return false
}

func (m *mergedIterator) Key() []byte {
	return m.key
}

func (m *mergedIterator) Value() []byte {
	return m.value
}

func (m *mergedIterator) Release() {
	m.base.Release()
	m.staged.Release()
}

func (m *mergedIterator) Error() error {
	if err := m.base.Error(); nil != err {
		return err
	}
	return m.staged.Error()
}
