// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb - the primary on-disk backend
package leveldb

import (
	"sync"

	goleveldb "github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/storage"
)

// Backend - one LevelDB database, columns are key prefixes
type Backend struct {
	sync.RWMutex
	db *goleveldb.DB
}

type column struct {
	backend *Backend
	name    string
	prefix  byte
}

// Open - open or create the database in a directory
func Open(directory string, readOnly bool) (*Backend, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}
	db, err := goleveldb.OpenFile(directory, opt)
	if nil != err {
		return nil, err
	}
	return &Backend{db: db}, nil
}

// Column - a prefix of the key space
func (b *Backend) Column(name string, prefix byte) (storage.Column, error) {
	return &column{backend: b, name: name, prefix: prefix}, nil
}

// Apply - one LevelDB batch for every column
func (b *Backend) Apply(batches []storage.ColumnBatch) error {
	b.RLock()
	defer b.RUnlock()
	if nil == b.db {
		return fault.DatabaseIsClosed
	}

	batch := new(goleveldb.Batch)
	for _, cb := range batches {
		c, ok := cb.Column.(*column)
		if !ok || c.backend != b {
			return fault.UnknownCollection
		}
		if cb.Clear {
			if err := c.deleteAll(batch); nil != err {
				return err
			}
		}
		for _, op := range cb.Ops {
			switch op.Kind {
			case storage.OpPut:
				batch.Put(c.key(op.Key), op.Value)
			case storage.OpDelete:
				batch.Delete(c.key(op.Key))
			}
		}
	}
	return b.db.Write(batch, nil)
}

// Save - nothing to do, every write is durable
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

// prepend the prefix onto the key
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
	c.backend.RLock()
	defer c.backend.RUnlock()
	if nil == c.backend.db {
		return nil, fault.DatabaseIsClosed
	}
	value, err := c.backend.db.Get(c.key(key), nil)
	if goleveldb.ErrNotFound == err {
		return nil, nil
	}
	return value, err
}

func (c *column) View(key []byte, f func(value []byte) error) (bool, error) {
	value, err := c.Get(key)
	if nil != err || nil == value {
		return false, err
	}
	return true, f(value)
}

func (c *column) Has(key []byte) (bool, error) {
	c.backend.RLock()
	defer c.backend.RUnlock()
	if nil == c.backend.db {
		return false, fault.DatabaseIsClosed
	}
	return c.backend.db.Has(c.key(key), nil)
}

func (c *column) NewIterator(r storage.ByteRange, reverse bool) storage.Iterator {
	c.backend.RLock()
	defer c.backend.RUnlock()
	if nil == c.backend.db {
		return storage.ErrorIterator(fault.DatabaseIsClosed)
	}
	prefixed := r.Prefixed(c.prefix)
	searchRange := &ldb_util.Range{
		Start: prefixed.Start, // included in the range
		Limit: prefixed.Limit, // excluded from the range
	}
	return storage.LevelIterator(c.backend.db.NewIterator(searchRange, nil), 1, reverse)
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

// queue deletes of every key in the column
func (c *column) deleteAll(batch *goleveldb.Batch) error {
	prefixed := storage.ByteRange{}.Prefixed(c.prefix)
	iter := c.backend.db.NewIterator(&ldb_util.Range{Start: prefixed.Start, Limit: prefixed.Limit}, nil)
	defer iter.Release()
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	return iter.Error()
}
