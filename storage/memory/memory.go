// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memory - in-process sorted map backend persisted on Save
//
// the store file layout:
//
//   magic "UCIM" ++ version(1) ++ count(8)
//   ++ [ key length(4) ++ key ++ value length(4) ++ value ]...
//   ++ xxhash64 of everything before it (8)
package memory

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/storage"
)

const (
	fileName     = "store.mem"
	storeVersion = 1
)

var magic = []byte("UCIM")

// Backend - a memdb holding prefixed keys
type Backend struct {
	sync.RWMutex
	db   *memdb.DB
	path string // empty for an ephemeral store
}

type column struct {
	backend *Backend
	name    string
	prefix  byte
}

// New - an ephemeral store that is never written to disk
func New() *Backend {
	return &Backend{
		db: memdb.New(comparer.DefaultComparer, 0),
	}
}

// Open - a store loaded from, and saved to, a directory
func Open(directory string) (*Backend, error) {
	b := New()
	b.path = filepath.Join(directory, fileName)
	if err := b.load(); nil != err {
		return nil, err
	}
	return b, nil
}

// Column - a prefix of the key space
func (b *Backend) Column(name string, prefix byte) (storage.Column, error) {
	return &column{backend: b, name: name, prefix: prefix}, nil
}

// Apply - under the backend lock, so readers never see a partial batch
func (b *Backend) Apply(batches []storage.ColumnBatch) error {
	b.Lock()
	defer b.Unlock()
	if nil == b.db {
		return fault.DatabaseIsClosed
	}

	for _, cb := range batches {
		if c, ok := cb.Column.(*column); !ok || c.backend != b {
			return fault.UnknownCollection
		}
	}
	for _, cb := range batches {
		c := cb.Column.(*column)
		if cb.Clear {
			c.deleteAll()
		}
		for _, op := range cb.Ops {
			var err error
			switch op.Kind {
			case storage.OpPut:
				err = b.db.Put(c.key(op.Key), op.Value)
			case storage.OpDelete:
				err = b.db.Delete(c.key(op.Key))
				if memdb.ErrNotFound == err {
					err = nil
				}
			}
			if nil != err {
				return err
			}
		}
	}
	return nil
}

// Durable - only after Save
func (b *Backend) Durable() bool {
	return false
}

// Save - write the whole store to a temporary file then rename it
func (b *Backend) Save() error {
	b.RLock()
	defer b.RUnlock()
	if nil == b.db {
		return fault.DatabaseIsClosed
	}
	if "" == b.path {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); nil != err {
		return err
	}
	temporary := b.path + ".new"
	f, err := os.OpenFile(temporary, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if nil != err {
		return err
	}

	hash := xxhash.New()
	w := bufio.NewWriter(io.MultiWriter(f, hash))

	header := make([]byte, 0, len(magic)+9)
	header = append(header, magic...)
	header = append(header, storeVersion)
	header = binary.BigEndian.AppendUint64(header, uint64(b.db.Len()))
	_, err = w.Write(header)

	iter := b.db.NewIterator(nil)
	for nil == err && iter.Next() {
		err = writeItem(w, iter.Key(), iter.Value())
	}
	iter.Release()

	if nil == err {
		err = w.Flush()
	}
	if nil == err {
		_, err = f.Write(binary.BigEndian.AppendUint64(nil, hash.Sum64()))
	}
	if nil == err {
		err = f.Sync()
	}
	if closeErr := f.Close(); nil == err {
		err = closeErr
	}
	if nil != err {
		_ = os.Remove(temporary)
		return err
	}
	return os.Rename(temporary, b.path)
}

func writeItem(w io.Writer, key []byte, value []byte) error {
	buffer := make([]byte, 0, 8+len(key)+len(value))
	buffer = binary.BigEndian.AppendUint32(buffer, uint32(len(key)))
	buffer = append(buffer, key...)
	buffer = binary.BigEndian.AppendUint32(buffer, uint32(len(value)))
	buffer = append(buffer, value...)
	_, err := w.Write(buffer)
	return err
}

// read a saved store, a missing file is an empty store
func (b *Backend) load() error {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil
	}
	if nil != err {
		return err
	}

	if len(data) < len(magic)+1+8+8 || !bytes.Equal(data[:len(magic)], magic) {
		return fault.InvalidStoreFile
	}
	body := data[:len(data)-8]
	if xxhash.Sum64(body) != binary.BigEndian.Uint64(data[len(data)-8:]) {
		return fault.InvalidStoreFile
	}
	if storeVersion != body[len(magic)] {
		return fault.InvalidStoreFile
	}

	n := binary.BigEndian.Uint64(body[len(magic)+1:])
	rest := body[len(magic)+9:]
	for i := uint64(0); i < n; i += 1 {
		var key, value []byte
		if key, rest, err = readField(rest); nil != err {
			return err
		}
		if value, rest, err = readField(rest); nil != err {
			return err
		}
		if err := b.db.Put(key, value); nil != err {
			return err
		}
	}
	if 0 != len(rest) {
		return fault.InvalidStoreFile
	}
	return nil
}

func readField(buffer []byte) ([]byte, []byte, error) {
	if len(buffer) < 4 {
		return nil, nil, fault.InvalidStoreFile
	}
	n := int(binary.BigEndian.Uint32(buffer))
	if len(buffer) < 4+n {
		return nil, nil, fault.InvalidStoreFile
	}
	return buffer[4 : 4+n], buffer[4+n:], nil
}

// Close - drop the contents, Save first to keep them
func (b *Backend) Close() error {
	b.Lock()
	defer b.Unlock()
	b.db = nil
	return nil
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

func (c *column) View(key []byte, f func(value []byte) error) (bool, error) {
	c.backend.RLock()
	if nil == c.backend.db {
		c.backend.RUnlock()
		return false, fault.DatabaseIsClosed
	}
	value, err := c.backend.db.Get(c.key(key))
	c.backend.RUnlock()

	if memdb.ErrNotFound == err {
		return false, nil
	}
	if nil != err {
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
	return c.backend.db.Contains(c.key(key)), nil
}

func (c *column) NewIterator(r storage.ByteRange, reverse bool) storage.Iterator {
	c.backend.RLock()
	defer c.backend.RUnlock()
	if nil == c.backend.db {
		return storage.ErrorIterator(fault.DatabaseIsClosed)
	}
	prefixed := r.Prefixed(c.prefix)
	iter := c.backend.db.NewIterator(&ldb_util.Range{Start: prefixed.Start, Limit: prefixed.Limit})
	return storage.LevelIterator(iter, 1, reverse)
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

// caller holds the backend lock
func (c *column) deleteAll() {
	prefixed := storage.ByteRange{}.Prefixed(c.prefix)
	iter := c.backend.db.NewIterator(&ldb_util.Range{Start: prefixed.Start, Limit: prefixed.Limit})
	keys := [][]byte{}
	for iter.Next() {
		keys = append(keys, append([]byte{}, iter.Key()...))
	}
	iter.Release()
	for _, k := range keys {
		_ = c.backend.db.Delete(k)
	}
}
