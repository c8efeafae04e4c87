// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pebble - embedded LSM backend
package pebble

import (
	"errors"
	"sync"

	lsm "github.com/cockroachdb/pebble"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/storage"
)

// Backend - one Pebble database, columns are key prefixes
type Backend struct {
	sync.RWMutex
	db *lsm.DB
}

type column struct {
	backend *Backend
	name    string
	prefix  byte
}

// Open - open or create the database in a directory
func Open(directory string, readOnly bool) (*Backend, error) {
	db, err := lsm.Open(directory, &lsm.Options{
		ReadOnly: readOnly,
	})
	if nil != err {
		return nil, err
	}
	return &Backend{db: db}, nil
}

// Column - a prefix of the key space
func (b *Backend) Column(name string, prefix byte) (storage.Column, error) {
	return &column{backend: b, name: name, prefix: prefix}, nil
}

// Apply - one synced batch for every column
func (b *Backend) Apply(batches []storage.ColumnBatch) error {
	b.RLock()
	defer b.RUnlock()
	if nil == b.db {
		return fault.DatabaseIsClosed
	}

	batch := b.db.NewBatch()
	defer batch.Close()

	for _, cb := range batches {
		c, ok := cb.Column.(*column)
		if !ok || c.backend != b {
			return fault.UnknownCollection
		}
		if cb.Clear {
			all := storage.ByteRange{}.Prefixed(c.prefix)
			end := all.Limit
			if nil == end {
				end = []byte{0xff, 0xff}
			}
			if err := batch.DeleteRange(all.Start, end, lsm.NoSync); nil != err {
				return err
			}
		}
		for _, op := range cb.Ops {
			var err error
			switch op.Kind {
			case storage.OpPut:
				err = batch.Set(c.key(op.Key), op.Value, lsm.NoSync)
			case storage.OpDelete:
				err = batch.Delete(c.key(op.Key), lsm.NoSync)
			}
			if nil != err {
				return err
			}
		}
	}
	return batch.Commit(lsm.Sync)
}

// Save - nothing to do, commits are synced
func (b *Backend) Save() error {
	return nil
}

// Durable - always
func (b *Backend) Durable() bool {
	return true
}

// Close - close the database
func (b *Backend) Close() error {
	b.Lock()
	defer b.Unlock()
	if nil == b.db {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (c *column) key(key []byte) []byte {
	prefixedKey := make([]byte, 1, len(key)+1)
	prefixedKey[0] = c.prefix
	return append(prefixedKey, key...)
}

func (c *column) Name() string {
	return c.name
}

func (c *column) Prefix() byte {
	return c.prefix
}

func (c *column) Get(key []byte) ([]byte, error) {
	var result []byte
	_, err := c.View(key, func(value []byte) error {
		result = append([]byte{}, value...)
		return nil
	})
	return result, err
}

// the value stays pinned in the block cache until the closer runs
func (c *column) View(key []byte, f func(value []byte) error) (bool, error) {
	c.backend.RLock()
	defer c.backend.RUnlock()
	if nil == c.backend.db {
		return false, fault.DatabaseIsClosed
	}
	value, closer, err := c.backend.db.Get(c.key(key))
	if errors.Is(err, lsm.ErrNotFound) {
		return false, nil
	}
	if nil != err {
		return false, err
	}
	defer closer.Close()
	return true, f(value)
}

func (c *column) Has(key []byte) (bool, error) {
	return c.View(key, func([]byte) error { return nil })
}

func (c *column) NewIterator(r storage.ByteRange, reverse bool) storage.Iterator {
	c.backend.RLock()
	defer c.backend.RUnlock()
	if nil == c.backend.db {
		return storage.ErrorIterator(fault.DatabaseIsClosed)
	}
	prefixed := r.Prefixed(c.prefix)
	iter, err := c.backend.db.NewIter(&lsm.IterOptions{
		LowerBound: prefixed.Start,
		UpperBound: prefixed.Limit,
	})
	if nil != err {
		return storage.ErrorIterator(err)
	}
	return &iterator{iter: iter, reverse: reverse}
}

func (c *column) Count() (int, error) {
	iter := c.NewIterator(storage.ByteRange{}, false)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n += 1
	}
	return n, iter.Error()
}

type iterator struct {
	iter    *lsm.Iterator
	reverse bool
	started bool
}

func (i *iterator) Next() bool {
	if !i.started {
		i.started = true
		if i.reverse {
			return i.iter.Last()
		}
		return i.iter.First()
	}
	if i.reverse {
		return i.iter.Prev()
	}
	return i.iter.Next()
}

func (i *iterator) Key() []byte {
	return i.iter.Key()[1:]
}

func (i *iterator) Value() []byte {
	return i.iter.Value()
}

func (i *iterator) Release() {
	_ = i.iter.Close()
}

func (i *iterator) Error() error {
	return i.iter.Error()
}
