// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/storage/memory"
)

func TestDeclare(t *testing.T) {
	db, err := storage.NewDatabase("declare", memory.New(), logger.New(fixtures.LogCategory))
	require.NoError(t, err)

	_, err = storage.Declare(db, "a", 'a', storage.Uint32Key{}, storage.UnitCodec{})
	assert.NoError(t, err)
	_, err = storage.Declare(db, "a", 'b', storage.Uint32Key{}, storage.UnitCodec{})
	assert.Equal(t, fault.CollectionAlreadyDeclared, err, "duplicate name")
	_, err = storage.Declare(db, "b", 'a', storage.Uint32Key{}, storage.UnitCodec{})
	assert.Equal(t, fault.CollectionPrefixInUse, err, "duplicate prefix")
	_, err = storage.Declare(db, "c", 0x00, storage.Uint32Key{}, storage.UnitCodec{})
	assert.Equal(t, fault.CollectionPrefixInUse, err, "meta prefix")

	require.NoError(t, db.Open(1))
	_, err = storage.Declare(db, "d", 'd', storage.Uint32Key{}, storage.UnitCodec{})
	assert.Equal(t, fault.AlreadyInitialised, err, "after open")
	assert.Equal(t, []string{"a"}, db.Collections())
}

func TestBasicOperations(t *testing.T) {
	d := setup(t)

	_, found, err := d.numbers.Get(7)
	assert.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, d.numbers.Upsert(7, record{Name: "seven", Count: 7}))
	value, found, err := d.numbers.Get(7)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, record{Name: "seven", Count: 7}, value)

	ok, err := d.numbers.Has(7)
	assert.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, d.numbers.Remove(7))
	ok, err = d.numbers.Has(7)
	assert.NoError(t, err)
	assert.False(t, ok)

	d.fill(t, 1, 2, 3)
	n, err := d.numbers.Count()
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, d.numbers.Clear())
	n, err = d.numbers.Count()
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRanges(t *testing.T) {
	d := setup(t)
	d.fill(t, 10, 20, 30, 40, 50)

	assert.Equal(t, []uint32{10, 20, 30, 40, 50}, keysOf(t, d.numbers.Iter(storage.RangeAll[uint32]())))
	assert.Equal(t, []uint32{20, 30}, keysOf(t, d.numbers.Iter(storage.RangeBetween[uint32](20, 40))), "half open")
	assert.Equal(t, []uint32{20, 30, 40}, keysOf(t, d.numbers.Iter(storage.RangeInclusive[uint32](20, 40))))
	assert.Equal(t, []uint32{40, 50}, keysOf(t, d.numbers.Iter(storage.RangeFrom[uint32](40))))
	assert.Equal(t, []uint32{50}, keysOf(t, d.numbers.Iter(storage.RangeAfter[uint32](40))))
	assert.Equal(t, []uint32{10, 20}, keysOf(t, d.numbers.Iter(storage.RangeBelow[uint32](30))))
	assert.Equal(t, []uint32{}, keysOf(t, d.numbers.Iter(storage.RangeBetween[uint32](40, 20))), "inverted")

	assert.Equal(t, []uint32{50, 40, 30, 20, 10}, keysOf(t, d.numbers.Iter(storage.RangeAll[uint32]()).Reverse()))
	assert.Equal(t, []uint32{30, 20}, keysOf(t, d.numbers.Iter(storage.RangeAfter[uint32](10).Below(40)).Reverse()))
	assert.Equal(t, []uint32{10, 30, 50}, keysOf(t, d.numbers.Iter(storage.RangeAll[uint32]()).StepBy(2)))

	// 3 byte prefix of a big endian uint32 selects 0..255
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, 0)
	assert.Equal(t, []uint32{10, 20, 30, 40, 50}, keysOf(t, d.numbers.Iter(storage.RangePrefix[uint32](prefix[:3]))))

	entries, err := d.numbers.Iter(storage.RangeAll[uint32]()).Collect(2)
	assert.NoError(t, err)
	require.Equal(t, 2, len(entries))
	assert.Equal(t, uint32(20), entries[1].Key)
	assert.Equal(t, 20, entries[1].Value.Count)

	first, found, err := d.numbers.Iter(storage.RangeAll[uint32]()).Reverse().First()
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(50), first.Key)
}

func TestWriteSeesStagedState(t *testing.T) {
	d := setup(t)
	d.fill(t, 1, 2, 3)

	err := d.db.Write(func(tx *storage.Tx) error {
		numbers := d.numbers.In(tx)
		names := d.names.In(tx)

		require.NoError(t, numbers.Remove(2))
		require.NoError(t, numbers.Upsert(4, record{Name: "four", Count: 4}))
		require.NoError(t, numbers.Upsert(1, record{Name: "one", Count: 100}))
		require.NoError(t, names.Upsert("x", storage.Unit{}))

		v, found, err := numbers.Get(1)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 100, v.Count, "staged value")

		_, found, err = numbers.Get(2)
		assert.NoError(t, err)
		assert.False(t, found, "staged delete")

		assert.Equal(t, []uint32{1, 3, 4}, keysOf(t, numbers.Iter(storage.RangeAll[uint32]())))
		assert.Equal(t, []uint32{4, 3, 1}, keysOf(t, numbers.Iter(storage.RangeAll[uint32]()).Reverse()))

		n, err := numbers.Count()
		assert.NoError(t, err)
		assert.Equal(t, 3, n)

		// outside the transaction nothing is visible yet
		ok, err := d.numbers.Has(4)
		assert.NoError(t, err)
		assert.False(t, ok, "uncommitted")
		return nil
	}, d.names, d.numbers)
	require.NoError(t, err)

	assert.Equal(t, []uint32{1, 3, 4}, keysOf(t, d.numbers.Iter(storage.RangeAll[uint32]())))
	ok, err := d.names.Has("x")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteClearThenPut(t *testing.T) {
	d := setup(t)
	d.fill(t, 1, 2, 3)

	err := d.db.Write(func(tx *storage.Tx) error {
		numbers := d.numbers.In(tx)
		require.NoError(t, numbers.Clear())
		require.NoError(t, numbers.Upsert(9, record{Count: 9}))
		assert.Equal(t, []uint32{9}, keysOf(t, numbers.Iter(storage.RangeAll[uint32]())))
		return nil
	}, d.numbers)
	require.NoError(t, err)
	assert.Equal(t, []uint32{9}, keysOf(t, d.numbers.Iter(storage.RangeAll[uint32]())))
}

func TestWriteErrorDiscards(t *testing.T) {
	d := setup(t)
	d.fill(t, 1)

	failure := errors.New("abandon")
	err := d.db.Write(func(tx *storage.Tx) error {
		require.NoError(t, d.numbers.In(tx).Upsert(2, record{}))
		require.NoError(t, d.names.In(tx).Upsert("y", storage.Unit{}))
		return failure
	}, d.numbers, d.names)
	assert.Equal(t, failure, err)

	assert.Equal(t, []uint32{1}, keysOf(t, d.numbers.Iter(storage.RangeAll[uint32]())))
	n, err := d.names.Count()
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReadOnly(t *testing.T) {
	d := setup(t)

	err := d.db.Read(func(tx *storage.Tx) error {
		assert.False(t, tx.Writable())
		return d.numbers.In(tx).Upsert(1, record{})
	}, d.numbers)
	assert.Equal(t, fault.ReadOnlyTransaction, err)

	err = d.db.TryRead(func(tx *storage.Tx) error {
		_, _, err := d.numbers.In(tx).Get(1)
		return err
	}, d.numbers)
	assert.NoError(t, err)
}

func TestCollectionNotInTransaction(t *testing.T) {
	d := setup(t)
	assert.Panics(t, func() {
		_ = d.db.Read(func(tx *storage.Tx) error {
			_, err := d.names.In(tx).Has("z")
			return err
		}, d.numbers)
	})
}

func TestEvents(t *testing.T) {
	d := setup(t)
	s := d.numbers.Subscribe(1)
	defer s.Close()

	require.NoError(t, d.db.Write(func(tx *storage.Tx) error {
		numbers := d.numbers.In(tx)
		_ = numbers.Upsert(1, record{Count: 1})
		_ = numbers.Remove(2)
		return nil
	}, d.numbers))

	// queue is full, this batch is lost
	require.NoError(t, d.numbers.Upsert(3, record{Count: 3}))

	batch := <-s.C()
	assert.Equal(t, uint64(0), batch.Lagged)
	require.Equal(t, 2, len(batch.Events))
	assert.Equal(t, storage.EventUpsert, batch.Events[0].Kind)
	assert.Equal(t, uint32(1), batch.Events[0].Key)
	assert.Equal(t, 1, batch.Events[0].Value.Count)
	assert.Equal(t, storage.EventRemove, batch.Events[1].Kind)
	assert.Equal(t, uint32(2), batch.Events[1].Key)

	require.NoError(t, d.numbers.Clear())
	batch = <-s.C()
	assert.Equal(t, uint64(1), batch.Lagged, "one lost batch")
	require.Equal(t, 1, len(batch.Events))
	assert.Equal(t, storage.EventClear, batch.Events[0].Kind)

	// an aborted write emits nothing
	_ = d.db.Write(func(tx *storage.Tx) error {
		_ = d.numbers.In(tx).Upsert(5, record{})
		return fault.TransactionAborted
	}, d.numbers)
	select {
	case <-s.C():
		t.Error("event after aborted write")
	default:
	}

	s.Close()
	_, ok := <-s.C()
	assert.False(t, ok, "closed")
}

func TestGetRef(t *testing.T) {
	db, err := storage.NewDatabase("refs", memory.New(), logger.New(fixtures.LogCategory))
	require.NoError(t, err)
	lists, err := storage.Declare(db, "lists", 'l', storage.StringKey{}, storage.BytesCodec{})
	require.NoError(t, err)
	require.NoError(t, db.Open(1))
	defer db.Close()

	require.NoError(t, lists.Upsert("abc", []byte("aabbcc")))
	require.NoError(t, lists.Upsert("odd", []byte("aab")))

	count, found, err := storage.GetRefSlice[string, int](lists, "abc", 2, func(elements [][]byte) (int, error) {
		assert.Equal(t, []byte("bb"), elements[1])
		return len(elements), nil
	})
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, count)

	_, _, err = storage.GetRefSlice[string, int](lists, "odd", 2, func(elements [][]byte) (int, error) {
		return len(elements), nil
	})
	assert.Equal(t, fault.TruncatedValue, err)

	_, found, err = storage.GetRef[string, int](lists, "missing", func(raw []byte) (int, error) {
		return len(raw), nil
	})
	assert.NoError(t, err)
	assert.False(t, found)

	err = db.Read(func(tx *storage.Tx) error {
		n, _, err := storage.GetRef[string, int](lists.In(tx), "abc", func(raw []byte) (int, error) {
			return len(raw), nil
		})
		assert.Equal(t, 6, n)
		return err
	}, lists)
	assert.NoError(t, err)
}

func TestExplorer(t *testing.T) {
	d := setup(t)
	d.fill(t, 1, 2, 3)

	e, err := d.db.Explore("numbers")
	require.NoError(t, err)
	assert.Equal(t, "numbers", e.Name())

	value, found, err := e.Get("2")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"name":"n","count":2}`, string(value))

	require.NoError(t, e.Put("7", []byte(`{"name":"seven","count":7}`)))
	v, _, err := d.numbers.Get(7)
	assert.NoError(t, err)
	assert.Equal(t, "seven", v.Name)

	items, err := e.List("2", 2, false)
	assert.NoError(t, err)
	require.Equal(t, 2, len(items))
	assert.Equal(t, "2", items[0].Key)
	assert.Equal(t, "3", items[1].Key)

	items, err = e.List("", 0, true)
	assert.NoError(t, err)
	require.Equal(t, 4, len(items))
	assert.Equal(t, "7", items[0].Key)

	items, err = e.Find("^[13]$", "", 0, false)
	assert.NoError(t, err)
	require.Equal(t, 2, len(items))
	assert.Equal(t, "3", items[1].Key)

	items, err = e.Find("", `"seven"`, 0, false)
	assert.NoError(t, err)
	require.Equal(t, 1, len(items))

	_, err = e.Find("(", "", 0, false)
	assert.Equal(t, fault.InvalidRegexp, err)

	require.NoError(t, e.Delete("7"))
	n, err := e.Count()
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	_, _, err = e.Get("x")
	assert.Equal(t, fault.InvalidKey, err)

	_, err = d.db.Explore("nothing")
	assert.Equal(t, fault.UnknownCollection, err)
}

func TestMigrations(t *testing.T) {
	directory := t.TempDir()
	log := logger.New(fixtures.LogCategory)

	open := func(version uint32, migrations ...storage.Migration) (*storage.Database, *storage.Collection[uint32, record], error) {
		backend, err := memory.Open(directory)
		require.NoError(t, err)
		db, err := storage.NewDatabase("migrate", backend, log)
		require.NoError(t, err)
		numbers, err := storage.Declare(db, "numbers", 'n', storage.Uint32Key{}, storage.CBOR[record]{})
		require.NoError(t, err)
		return db, numbers, db.Open(version, migrations...)
	}

	db, numbers, err := open(1)
	require.NoError(t, err)
	require.NoError(t, numbers.Upsert(1, record{Count: 1}))
	require.NoError(t, db.Close())

	steps := []uint32{}
	migrations := []storage.Migration{
		{From: 2, To: 3, Apply: func(*storage.Database) error {
			steps = append(steps, 3)
			return nil
		}},
		{From: 1, To: 2, Apply: func(*storage.Database) error {
			steps = append(steps, 2)
			return nil
		}},
	}
	db, numbers, err = open(3, migrations...)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, steps, "migrations in order")
	version, found, err := db.Version()
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(3), version)
	v, found, err := numbers.Get(1)
	assert.NoError(t, err)
	assert.True(t, found, "data survives save and reload")
	assert.Equal(t, 1, v.Count)
	require.NoError(t, db.Close())

	db, _, err = open(2)
	assert.True(t, errors.Is(err, fault.DatabaseVersionTooNew))
	_ = db.Close()

	db, _, err = open(5)
	assert.True(t, errors.Is(err, fault.MigrationMissing))
	_ = db.Close()
}

func TestClosed(t *testing.T) {
	d := setup(t)
	require.NoError(t, d.db.Close())
	_, _, err := d.numbers.Get(1)
	assert.Equal(t, fault.DatabaseIsClosed, err)
}
