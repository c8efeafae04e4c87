// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bolt - on-disk B-tree backend, one bucket per column
package bolt

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/storage"
)

const (
	fileName    = "store.bolt"
	openTimeout = 5 * time.Second
)

// Backend - one bbolt file
type Backend struct {
	sync.RWMutex
	db *bolt.DB
}

type column struct {
	backend *Backend
	name    string
	bucket  []byte
	prefix  byte
}

// Open - open or create the store file inside a directory
func Open(directory string, readOnly bool) (*Backend, error) {
	if !readOnly {
		if err := os.MkdirAll(directory, 0o700); nil != err {
			return nil, err
		}
	}
	db, err := bolt.Open(filepath.Join(directory, fileName), 0o600, &bolt.Options{
		Timeout:  openTimeout,
		ReadOnly: readOnly,
	})
	if nil != err {
		return nil, err
	}
	return &Backend{db: db}, nil
}

// Column - a bucket named after the column
func (b *Backend) Column(name string, prefix byte) (storage.Column, error) {
	b.RLock()
	defer b.RUnlock()
	if nil == b.db {
		return nil, fault.DatabaseIsClosed
	}
	c := &column{
		backend: b,
		name:    name,
		bucket:  []byte(name),
		prefix:  prefix,
	}
	if b.db.IsReadOnly() {
		return c, nil
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(c.bucket)
		return err
	})
	if nil != err {
		return nil, err
	}
	return c, nil
}

// Apply - every column in one update transaction
func (b *Backend) Apply(batches []storage.ColumnBatch) error {
	b.RLock()
	defer b.RUnlock()
	if nil == b.db {
		return fault.DatabaseIsClosed
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		for _, cb := range batches {
			c, ok := cb.Column.(*column)
			if !ok || c.backend != b {
				return fault.UnknownCollection
			}
			if cb.Clear {
				if err := tx.DeleteBucket(c.bucket); nil != err && bolt.ErrBucketNotFound != err {
					return err
				}
			}
			bucket, err := tx.CreateBucketIfNotExists(c.bucket)
			if nil != err {
				return err
			}
			for _, op := range cb.Ops {
				switch op.Kind {
				case storage.OpPut:
					err = bucket.Put(op.Key, op.Value)
				case storage.OpDelete:
					err = bucket.Delete(op.Key)
				}
				if nil != err {
					return err
				}
			}
		}
		return nil
	})
}

// Save - nothing to do, every update is synced
func (b *Backend) Save() error {
	return nil
}

// Durable - always
func (b *Backend) Durable() bool {
	return true
}

// Close - close the file
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

// the value lives in the memory map for the duration of the read transaction
func (c *column) View(key []byte, f func(value []byte) error) (bool, error) {
	c.backend.RLock()
	defer c.backend.RUnlock()
	if nil == c.backend.db {
		return false, fault.DatabaseIsClosed
	}
	found := false
	err := c.backend.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(c.bucket)
		if nil == bucket {
			return nil
		}
		k, v := bucket.Cursor().Seek(key)
		if nil == k || !bytes.Equal(k, key) {
			return nil
		}
		found = true
		return f(v)
	})
	return found, err
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
	tx, err := c.backend.db.Begin(false)
	if nil != err {
		return storage.ErrorIterator(err)
	}
	i := &iterator{
		tx:      tx,
		r:       r,
		reverse: reverse,
	}
	if bucket := tx.Bucket(c.bucket); nil != bucket {
		i.cursor = bucket.Cursor()
	}
	return i
}

func (c *column) Count() (int, error) {
	c.backend.RLock()
	defer c.backend.RUnlock()
	if nil == c.backend.db {
		return 0, fault.DatabaseIsClosed
	}
	n := 0
	err := c.backend.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket(c.bucket); nil != bucket {
			n = bucket.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// iterator - a cursor inside a read transaction released with the iterator
type iterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	r       storage.ByteRange
	reverse bool
	started bool
	key     []byte
	value   []byte
}

func (i *iterator) Next() bool {
	if nil == i.cursor {
		return false
	}
	var k, v []byte
	switch {
	case !i.started && !i.reverse:
		if nil == i.r.Start {
			k, v = i.cursor.First()
		} else {
			k, v = i.cursor.Seek(i.r.Start)
		}
	case !i.started && i.reverse:
		if nil == i.r.Limit {
			k, v = i.cursor.Last()
		} else if k, v = i.cursor.Seek(i.r.Limit); nil == k {
			k, v = i.cursor.Last()
		} else {
			k, v = i.cursor.Prev()
		}
	case i.reverse:
		k, v = i.cursor.Prev()
	default:
		k, v = i.cursor.Next()
	}
	i.started = true

	if nil == k {
		i.key, i.value = nil, nil
		return false
	}
	if i.reverse && nil != i.r.Start && bytes.Compare(k, i.r.Start) < 0 {
		return false
	}
	if !i.reverse && nil != i.r.Limit && bytes.Compare(k, i.r.Limit) >= 0 {
		return false
	}
	i.key, i.value = k, v
	return true
}

func (i *iterator) Key() []byte {
	return i.key
}

func (i *iterator) Value() []byte {
	return i.value
}

func (i *iterator) Release() {
	if nil != i.tx {
		_ = i.tx.Rollback()
		i.tx = nil
	}
}

func (i *iterator) Error() error {
	return nil
}
