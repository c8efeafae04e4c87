// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

// Backend - a byte level ordered key value engine holding the
// columns of one database
type Backend interface {
	// Column - open (creating if necessary) the named column
	Column(name string, prefix byte) (Column, error)

	// Apply - write all batches atomically
	Apply(batches []ColumnBatch) error

	// Save - persist state, a no-op for engines durable on commit
	Save() error

	// Close - release all resources
	Close() error

	// Durable - true if every Apply is persisted
	Durable() bool
}

// Column - read access to one column of a backend
//
// keys are relative to the column
type Column interface {
	Name() string
	Prefix() byte

	// Get - copy of the value, nil if absent
	Get(key []byte) ([]byte, error)

	// View - lend the stored value to f, false if absent
	// the slice is only valid during the call
	View(key []byte, f func(value []byte) error) (bool, error)

	Has(key []byte) (bool, error)
	NewIterator(r ByteRange, reverse bool) Iterator
	Count() (int, error)
}

// Iterator - ordered traversal of a column
//
// Key and Value are only valid until the next call to Next
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// ByteRange - half open [Start, Limit) range of column keys,
// nil means unbounded
type ByteRange struct {
	Start []byte
	Limit []byte
}

// OpKind - kind of a staged write
type OpKind int

// staged write kinds
const (
	OpPut OpKind = iota
	OpDelete
)

// Op - one staged write
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// ColumnBatch - all writes to one column in a commit
//
// when Clear is set the column is emptied before Ops are applied
type ColumnBatch struct {
	Column Column
	Clear  bool
	Ops    []Op
}

// Empty - true if the batch changes nothing
func (b ColumnBatch) Empty() bool {
	return !b.Clear && 0 == len(b.Ops)
}

// PrefixLimit - the first key after every key starting with prefix,
// nil if there is none
func PrefixLimit(prefix []byte) []byte {
	limit := make([]byte, len(prefix))
	copy(limit, prefix)
	for i := len(limit) - 1; i >= 0; i -= 1 {
		if 0xff != limit[i] {
			limit[i] += 1
			return limit[:i+1]
		}
	}
	return nil
}

// Prefixed - the range moved under a one byte prefix
func (r ByteRange) Prefixed(prefix byte) ByteRange {
	start := append([]byte{prefix}, r.Start...)
	limit := []byte(nil)
	if nil != r.Limit {
		limit = append([]byte{prefix}, r.Limit...)
	} else if prefix < 0xff {
		limit = []byte{prefix + 1}
	}
	return ByteRange{Start: start, Limit: limit}
}

// LevelIterator - adapt a goleveldb style iterator, stripping the
// first strip bytes of every key
func LevelIterator(it iterator.Iterator, strip int, reverse bool) Iterator {
	return &levelIterator{
		it:      it,
		strip:   strip,
		reverse: reverse,
	}
}

type levelIterator struct {
	it      iterator.Iterator
	strip   int
	reverse bool
	started bool
}

func (l *levelIterator) Next() bool {
	if !l.started {
		l.started = true
		if l.reverse {
			return l.it.Last()
		}
		return l.it.First()
	}
	if l.reverse {
		return l.it.Prev()
	}
	return l.it.Next()
}

func (l *levelIterator) Key() []byte {
	return l.it.Key()[l.strip:]
}

func (l *levelIterator) Value() []byte {
	return l.it.Value()
}

func (l *levelIterator) Release() {
	l.it.Release()
}

func (l *levelIterator) Error() error {
	return l.it.Error()
}

// iterator that yields nothing
type emptyIterator struct{}

func (emptyIterator) Next() bool    { return false }
func (emptyIterator) Key() []byte   { return nil }
func (emptyIterator) Value() []byte { return nil }
func (emptyIterator) Release()      {}
func (emptyIterator) Error() error  { return nil }

// ErrorIterator - an iterator that only reports err
func ErrorIterator(err error) Iterator {
	return &errorIterator{err: err}
}

type errorIterator struct {
	emptyIterator
	err error
}

func (e *errorIterator) Error() error { return e.err }
