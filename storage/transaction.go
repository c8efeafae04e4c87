// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/uci-network/ucid/fault"
)

// overlay value markers
const (
	overlayDeleted = 0x00
	overlayPresent = 0x01
)

// Tx - a multi-collection transaction, only valid inside the
// function passed to Read, TryRead or Write
type Tx struct {
	db       *Database
	writable bool
	stages   map[*collectionInfo]*staging
	order    []*staging
}

// staged writes of one collection
type staging struct {
	info    *collectionInfo
	cleared bool
	overlay *memdb.DB
	ops     []Op
}

// Writable - true inside Write
func (tx *Tx) Writable() bool {
	return tx.writable
}

func newTx(db *Database, members []*collectionInfo, writable bool) *Tx {
	tx := &Tx{
		db:       db,
		writable: writable,
		stages:   make(map[*collectionInfo]*staging, len(members)),
		order:    make([]*staging, 0, len(members)),
	}
	for _, info := range members {
		s := &staging{info: info}
		tx.stages[info] = s
		tx.order = append(tx.order, s)
	}
	return tx
}

func (tx *Tx) stage(info *collectionInfo) *staging {
	s, ok := tx.stages[info]
	if !ok {
		fault.Panicf("collection: %s is not part of this transaction", info.name)
	}
	return s
}

// Read - run f holding read locks on the collections
//
// locks are taken in declaration order
func (db *Database) Read(f func(tx *Tx) error, collections ...Handle) error {
	members, err := db.members(collections)
	if nil != err {
		return err
	}
	for _, info := range members {
		info.lock.readLock()
	}
	defer func() {
		for i := len(members) - 1; i >= 0; i -= 1 {
			members[i].lock.readUnlock()
		}
	}()

	if db.closed.Load() {
		return fault.DatabaseIsClosed
	}
	return f(newTx(db, members, false))
}

// TryRead - as Read but fail with fault.LockBusy instead of waiting
func (db *Database) TryRead(f func(tx *Tx) error, collections ...Handle) error {
	members, err := db.members(collections)
	if nil != err {
		return err
	}
	locked := 0
	defer func() {
		for i := locked - 1; i >= 0; i -= 1 {
			members[i].lock.readUnlock()
		}
	}()
	for _, info := range members {
		if !info.lock.tryReadLock() {
			return fault.LockBusy
		}
		locked += 1
	}

	if db.closed.Load() {
		return fault.DatabaseIsClosed
	}
	return f(newTx(db, members, false))
}

// Write - run f staging writes to the collections, then commit
// them atomically
//
// plain readers are not blocked while f runs, exclusive locks are
// held only to apply the batches and deliver events; if f returns
// an error nothing is written
func (db *Database) Write(f func(tx *Tx) error, collections ...Handle) error {
	members, err := db.members(collections)
	if nil != err {
		return err
	}
	for _, info := range members {
		info.lock.upgradableLock()
	}
	upgraded := false
	defer func() {
		for i := len(members) - 1; i >= 0; i -= 1 {
			if upgraded {
				members[i].lock.exclusiveUnlock()
			} else {
				members[i].lock.upgradableUnlock()
			}
		}
	}()

	if db.closed.Load() {
		return fault.DatabaseIsClosed
	}

	tx := newTx(db, members, true)
	if err := f(tx); nil != err {
		return err
	}

	batches := tx.batches()
	if 0 == len(batches) {
		return nil
	}

	for _, info := range members {
		info.lock.upgrade()
	}
	upgraded = true

	if err := db.backend.Apply(batches); nil != err {
		db.log.Errorf("%s: commit failed: %s", db.name, err)
		return fault.Backend(err)
	}

	// events are post-commit and in commit order per collection
	for _, s := range tx.order {
		if s.changed() && nil != s.info.publish {
			s.info.publish(s)
		}
	}
	return nil
}

func (tx *Tx) batches() []ColumnBatch {
	batches := make([]ColumnBatch, 0, len(tx.order))
	for _, s := range tx.order {
		if !s.changed() {
			continue
		}
		batches = append(batches, ColumnBatch{
			Column: s.info.column,
			Clear:  s.cleared,
			Ops:    s.ops,
		})
	}
	return batches
}

func (s *staging) changed() bool {
	return s.cleared || 0 != len(s.ops)
}

func (s *staging) put(key []byte, value []byte) {
	s.ensureOverlay()
	marked := make([]byte, 1+len(value))
	marked[0] = overlayPresent
	copy(marked[1:], value)
	_ = s.overlay.Put(key, marked)
	s.ops = append(s.ops, Op{Kind: OpPut, Key: key, Value: value})
}

func (s *staging) remove(key []byte) {
	s.ensureOverlay()
	_ = s.overlay.Put(key, []byte{overlayDeleted})
	s.ops = append(s.ops, Op{Kind: OpDelete, Key: key})
}

func (s *staging) clear() {
	s.cleared = true
	s.ops = nil
	if nil != s.overlay {
		s.overlay.Reset()
	}
}

func (s *staging) ensureOverlay() {
	if nil == s.overlay {
		s.overlay = memdb.New(comparer.DefaultComparer, 0)
	}
}

// staged state of a key: decided is false when the committed
// column must be consulted
func (s *staging) lookup(key []byte) (value []byte, found bool, decided bool) {
	if nil != s.overlay {
		v, err := s.overlay.Get(key)
		if nil == err && len(v) > 0 {
			if overlayPresent == v[0] {
				return v[1:], true, true
			}
			return nil, false, true
		}
	}
	if s.cleared {
		return nil, false, true
	}
	return nil, false, false
}

func (s *staging) view(key []byte, f func(value []byte) error) (bool, error) {
	value, found, decided := s.lookup(key)
	if decided {
		if !found {
			return false, nil
		}
		return true, f(value)
	}
	return s.info.column.View(key, f)
}

func (s *staging) iterator(r ByteRange, reverse bool) Iterator {
	var base Iterator = emptyIterator{}
	if !s.cleared {
		base = s.info.column.NewIterator(r, reverse)
	}
	if nil == s.overlay {
		return base
	}
	staged := LevelIterator(s.overlay.NewIterator(&ldb_util.Range{Start: r.Start, Limit: r.Limit}), 0, reverse)
	return newMergedIterator(base, staged, reverse)
}
