// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package backends_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/storage/backends"
)

// read every key of a column in the given direction
func collect(t *testing.T, c storage.Column, r storage.ByteRange, reverse bool) []string {
	iter := c.NewIterator(r, reverse)
	defer iter.Release()
	keys := []string{}
	for iter.Next() {
		keys = append(keys, string(iter.Key())+"="+string(iter.Value()))
	}
	require.NoError(t, iter.Error())
	return keys
}

func put(c storage.Column, items ...string) storage.ColumnBatch {
	b := storage.ColumnBatch{Column: c}
	for i := 0; i < len(items); i += 2 {
		b.Ops = append(b.Ops, storage.Op{Kind: storage.OpPut, Key: []byte(items[i]), Value: []byte(items[i+1])})
	}
	return b
}

// every backend must behave identically apart from durability
func TestConformance(t *testing.T) {
	for _, name := range backends.Names() {
		t.Run(name, func(t *testing.T) {
			directory := t.TempDir()
			b, err := backends.Open(name, directory, false)
			require.NoError(t, err, "open")

			first, err := b.Column("first", 'a')
			require.NoError(t, err)
			second, err := b.Column("second", 'b')
			require.NoError(t, err)

			err = b.Apply([]storage.ColumnBatch{
				put(first, "k1", "v1", "k3", "v3", "k2", "v2", "k4", ""),
				put(second, "k1", "other"),
			})
			require.NoError(t, err, "apply")

			value, err := first.Get([]byte("k2"))
			assert.NoError(t, err)
			assert.Equal(t, "v2", string(value))

			value, err = first.Get([]byte("k9"))
			assert.NoError(t, err)
			assert.Nil(t, value, "absent key")

			found, err := first.View([]byte("k4"), func(v []byte) error {
				assert.Equal(t, 0, len(v))
				return nil
			})
			assert.NoError(t, err)
			assert.True(t, found, "empty value is present")

			ok, err := second.Has([]byte("k2"))
			assert.NoError(t, err)
			assert.False(t, ok, "columns are separate")

			assert.Equal(t, []string{"k1=v1", "k2=v2", "k3=v3", "k4="}, collect(t, first, storage.ByteRange{}, false))
			assert.Equal(t, []string{"k4=", "k3=v3", "k2=v2", "k1=v1"}, collect(t, first, storage.ByteRange{}, true))
			r := storage.ByteRange{Start: []byte("k2"), Limit: []byte("k4")}
			assert.Equal(t, []string{"k2=v2", "k3=v3"}, collect(t, first, r, false))
			assert.Equal(t, []string{"k3=v3", "k2=v2"}, collect(t, first, r, true))

			n, err := first.Count()
			assert.NoError(t, err)
			assert.Equal(t, 4, n)

			// clear then write in the same batch
			err = b.Apply([]storage.ColumnBatch{{
				Column: first,
				Clear:  true,
				Ops: []storage.Op{
					{Kind: storage.OpPut, Key: []byte("k5"), Value: []byte("v5")},
					{Kind: storage.OpDelete, Key: []byte("k9")},
				},
			}})
			require.NoError(t, err, "clear")
			assert.Equal(t, []string{"k5=v5"}, collect(t, first, storage.ByteRange{}, false))
			assert.Equal(t, []string{"k1=other"}, collect(t, second, storage.ByteRange{}, false))

			require.NoError(t, b.Save(), "save")
			require.NoError(t, b.Close(), "close")

			// reopen keeps committed data
			b, err = backends.Open(name, directory, false)
			require.NoError(t, err, "reopen")
			defer b.Close()
			first, err = b.Column("first", 'a')
			require.NoError(t, err)
			assert.Equal(t, []string{"k5=v5"}, collect(t, first, storage.ByteRange{}, false))
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := backends.Open("rocks", t.TempDir(), false)
	assert.Equal(t, fault.InvalidBackend, err)
}

func TestEphemeralMemory(t *testing.T) {
	b, err := backends.Open(backends.Memory, "", false)
	require.NoError(t, err)
	assert.False(t, b.Durable())
	assert.NoError(t, b.Save(), "ephemeral save is a no-op")
	assert.NoError(t, b.Close())
}
