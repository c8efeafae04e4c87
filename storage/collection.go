// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/uci-network/ucid/fault"
)

// Collection - a typed handle on one column of a database
type Collection[K, V any] struct {
	info   *collectionInfo
	keys   KeyCodec[K]
	values Codec[V]
	events *broadcaster[K, V]
}

// Declare - add a collection to a database before it is opened
func Declare[K, V any](db *Database, name string, prefix byte, keys KeyCodec[K], values Codec[V]) (*Collection[K, V], error) {
	info, err := db.declare(name, prefix)
	if nil != err {
		return nil, err
	}
	c := &Collection[K, V]{
		info:   info,
		keys:   keys,
		values: values,
		events: newBroadcaster[K, V](),
	}
	info.publish = c.publish
	info.explorer = &explorer[K, V]{c: c}
	return c, nil
}

func (c *Collection[K, V]) descriptor() *collectionInfo {
	return c.info
}

// Name - collection name
func (c *Collection[K, V]) Name() string {
	return c.info.name
}

// Prefix - collection prefix byte
func (c *Collection[K, V]) Prefix() byte {
	return c.info.prefix
}

// Keys - the key codec
func (c *Collection[K, V]) Keys() KeyCodec[K] {
	return c.keys
}

// In - the view of this collection inside a transaction
//
// panics if the collection was not named when the transaction began
func (c *Collection[K, V]) In(tx *Tx) *View[K, V] {
	return &View[K, V]{
		c:     c,
		tx:    tx,
		stage: tx.stage(c.info),
	}
}

func (c *Collection[K, V]) read(f func(v *View[K, V]) error) error {
	return c.info.db.Read(func(tx *Tx) error {
		return f(c.In(tx))
	}, c)
}

func (c *Collection[K, V]) write(f func(v *View[K, V]) error) error {
	return c.info.db.Write(func(tx *Tx) error {
		return f(c.In(tx))
	}, c)
}

// Get - read a value
func (c *Collection[K, V]) Get(key K) (V, bool, error) {
	var value V
	var found bool
	err := c.read(func(v *View[K, V]) error {
		var err error
		value, found, err = v.Get(key)
		return err
	})
	return value, found, err
}

// Has - check for a key
func (c *Collection[K, V]) Has(key K) (bool, error) {
	found := false
	err := c.read(func(v *View[K, V]) error {
		var err error
		found, err = v.Has(key)
		return err
	})
	return found, err
}

// Lend - give f the stored bytes of a value without copying
func (c *Collection[K, V]) Lend(key K, f func(raw []byte) error) (bool, error) {
	found := false
	err := c.read(func(v *View[K, V]) error {
		var err error
		found, err = v.Lend(key, f)
		return err
	})
	return found, err
}

// Count - number of keys
func (c *Collection[K, V]) Count() (int, error) {
	n := 0
	err := c.read(func(v *View[K, V]) error {
		var err error
		n, err = v.Count()
		return err
	})
	return n, err
}

// Iter - iterate a range, holding the read lock while walking
func (c *Collection[K, V]) Iter(r Range[K]) *Iter[K, V] {
	return &Iter[K, V]{
		keys:   c.keys,
		values: c.values,
		r:      r,
		step:   1,
		open: func(br ByteRange, reverse bool) Iterator {
			return c.info.column.NewIterator(br, reverse)
		},
		guard: func(body func() error) error {
			return c.info.db.Read(func(*Tx) error {
				return body()
			}, c)
		},
	}
}

// Upsert - write one value
func (c *Collection[K, V]) Upsert(key K, value V) error {
	return c.write(func(v *View[K, V]) error {
		return v.Upsert(key, value)
	})
}

// Remove - delete one key
func (c *Collection[K, V]) Remove(key K) error {
	return c.write(func(v *View[K, V]) error {
		return v.Remove(key)
	})
}

// Clear - delete every key
func (c *Collection[K, V]) Clear() error {
	return c.write(func(v *View[K, V]) error {
		return v.Clear()
	})
}

// Subscribe - receive the events of every committed batch
func (c *Collection[K, V]) Subscribe(buffer int) *Subscription[K, V] {
	return c.events.subscribe(buffer)
}

// decode the staged operations and broadcast them
func (c *Collection[K, V]) publish(s *staging) {
	if !c.events.active() {
		return
	}
	events := make([]Event[K, V], 0, len(s.ops)+1)
	if s.cleared {
		events = append(events, Event[K, V]{Kind: EventClear})
	}
	for _, op := range s.ops {
		key, err := c.keys.Decode(op.Key)
		if nil != err {
			c.info.db.log.Errorf("%s: event key: %x  error: %s", c.info.name, op.Key, err)
			continue
		}
		e := Event[K, V]{Key: key}
		switch op.Kind {
		case OpPut:
			value, err := c.values.Decode(op.Value)
			if nil != err {
				c.info.db.log.Errorf("%s: event value for key: %x  error: %s", c.info.name, op.Key, err)
				continue
			}
			e.Kind = EventUpsert
			e.Value = value
		default:
			e.Kind = EventRemove
		}
		events = append(events, e)
	}
	c.events.send(events)
}

// View - a collection inside a transaction
type View[K, V any] struct {
	c     *Collection[K, V]
	tx    *Tx
	stage *staging
}

// Get - read a value, staged writes included
func (v *View[K, V]) Get(key K) (V, bool, error) {
	var value V
	found, err := v.Lend(key, func(raw []byte) error {
		var err error
		value, err = v.c.values.Decode(raw)
		return err
	})
	return value, found, err
}

// Has - check for a key, staged writes included
func (v *View[K, V]) Has(key K) (bool, error) {
	k, err := v.c.keys.Encode(key)
	if nil != err {
		return false, err
	}
	_, found, decided := v.stage.lookup(k)
	if decided {
		return found, nil
	}
	found, err = v.c.info.column.Has(k)
	return found, fault.Backend(err)
}

// Lend - give f the stored bytes of a value without copying
func (v *View[K, V]) Lend(key K, f func(raw []byte) error) (bool, error) {
	k, err := v.c.keys.Encode(key)
	if nil != err {
		return false, err
	}
	return v.stage.view(k, f)
}

// Iter - iterate a range, staged writes included
func (v *View[K, V]) Iter(r Range[K]) *Iter[K, V] {
	return &Iter[K, V]{
		keys:   v.c.keys,
		values: v.c.values,
		r:      r,
		step:   1,
		open:   v.stage.iterator,
		guard: func(body func() error) error {
			return body()
		},
	}
}

// Count - number of keys, staged writes included
func (v *View[K, V]) Count() (int, error) {
	if nil == v.stage.overlay && !v.stage.cleared {
		n, err := v.c.info.column.Count()
		return n, fault.Backend(err)
	}
	n := 0
	it := v.stage.iterator(ByteRange{}, false)
	defer it.Release()
	for it.Next() {
		n += 1
	}
	return n, fault.Backend(it.Error())
}

// Upsert - stage a write
func (v *View[K, V]) Upsert(key K, value V) error {
	if !v.tx.writable {
		return fault.ReadOnlyTransaction
	}
	k, err := v.c.keys.Encode(key)
	if nil != err {
		return err
	}
	buffer, err := v.c.values.Encode(value)
	if nil != err {
		return err
	}
	v.stage.put(k, buffer)
	return nil
}

// Remove - stage a delete
func (v *View[K, V]) Remove(key K) error {
	if !v.tx.writable {
		return fault.ReadOnlyTransaction
	}
	k, err := v.c.keys.Encode(key)
	if nil != err {
		return err
	}
	v.stage.remove(k)
	return nil
}

// Clear - stage deleting every key
func (v *View[K, V]) Clear() error {
	if !v.tx.writable {
		return fault.ReadOnlyTransaction
	}
	v.stage.clear()
	return nil
}

// Batch - typed writes for one collection applied together
type Batch[K, V any] struct {
	c       *Collection[K, V]
	cleared bool
	ops     []batchOp[K, V]
}

type batchOp[K, V any] struct {
	remove bool
	key    K
	value  V
}

// NewBatch - start an empty batch
func (c *Collection[K, V]) NewBatch() *Batch[K, V] {
	return &Batch[K, V]{c: c}
}

// Upsert - add a write
func (b *Batch[K, V]) Upsert(key K, value V) {
	b.ops = append(b.ops, batchOp[K, V]{key: key, value: value})
}

// Remove - add a delete
func (b *Batch[K, V]) Remove(key K) {
	b.ops = append(b.ops, batchOp[K, V]{remove: true, key: key})
}

// Clear - discard earlier operations and empty the collection first
func (b *Batch[K, V]) Clear() {
	b.cleared = true
	b.ops = nil
}

// Len - number of staged operations
func (b *Batch[K, V]) Len() int {
	return len(b.ops)
}

// WriteBatch - apply a batch atomically
func (c *Collection[K, V]) WriteBatch(b *Batch[K, V]) error {
	if b.c != c {
		return fault.UnknownCollection
	}
	return c.write(func(v *View[K, V]) error {
		if b.cleared {
			if err := v.Clear(); nil != err {
				return err
			}
		}
		for _, op := range b.ops {
			var err error
			if op.remove {
				err = v.Remove(op.key)
			} else {
				err = v.Upsert(op.key, op.value)
			}
			if nil != err {
				return err
			}
		}
		return nil
	})
}
