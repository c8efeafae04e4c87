// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package publish

import (
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/background"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/storage/memory"
)

type fakeSocket struct {
	sent   chan []interface{}
	closed chan struct{}
}

func (s *fakeSocket) SendMessageDontwait(parts ...interface{}) (int, error) {
	s.sent <- parts
	return len(parts), nil
}

func (s *fakeSocket) Close() error {
	close(s.closed)
	return nil
}

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	rc := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(rc)
}

func receive(t *testing.T, s *fakeSocket) []interface{} {
	select {
	case parts := <-s.sent:
		return parts
	case <-time.After(5 * time.Second):
		t.Fatal("nothing published")
	}
	return nil
}

func TestBlockMessages(t *testing.T) {
	batch := storage.Events[uint32, schema.BlockMeta]{
		Events: []storage.Event[uint32, schema.BlockMeta]{
			{Kind: storage.EventUpsert, Key: 3, Value: schema.BlockMeta{Number: 3, MedianTime: 1600000000}},
			{Kind: storage.EventRemove, Key: 2},
			{Kind: storage.EventClear},
		},
	}
	messages := blockMessages(batch)
	require.Len(t, messages, 3)

	assert.Equal(t, BlockTopic, messages[0].topic)
	assert.Equal(t, "upsert", string(messages[0].parameters[0]))
	assert.Contains(t, string(messages[0].parameters[1]), `"number":3`)
	assert.Contains(t, string(messages[0].parameters[1]), `"medianTime":1600000000`)

	assert.Equal(t, [][]byte{[]byte("remove"), []byte("2")}, messages[1].parameters)
	assert.Equal(t, [][]byte{[]byte("clear")}, messages[2].parameters)
}

func TestBroadcaster(t *testing.T) {
	log := logger.New(fixtures.LogCategory)

	chain, err := schema.OpenChainState(memory.New(), log)
	require.NoError(t, err)
	defer chain.DB.Close()
	pool, err := schema.OpenMempool(memory.New(), log)
	require.NoError(t, err)
	defer pool.DB.Close()

	socket := &fakeSocket{
		sent:   make(chan []interface{}, 10),
		closed: make(chan struct{}),
	}
	brdc := &broadcaster{
		log:    log,
		socket: socket,
		blocks: chain.BlocksMeta.Subscribe(10),
		txs:    pool.PendingTxs.Subscribe(10),
	}
	p := background.Start(background.Processes{brdc}, nil)

	require.NoError(t, chain.BlocksMeta.Upsert(7, schema.BlockMeta{Number: 7}))
	parts := receive(t, socket)
	require.Len(t, parts, 3)
	assert.Equal(t, BlockTopic, parts[0])
	assert.Equal(t, []byte("upsert"), parts[1])

	h := digest.NewSHA3([]byte("pending"))
	require.NoError(t, pool.PendingTxs.Upsert(h, schema.PendingTx{ReceivedTime: 5}))
	parts = receive(t, socket)
	require.Len(t, parts, 3)
	assert.Equal(t, TxTopic, parts[0])
	assert.Contains(t, string(parts[2].([]byte)), `"receivedTime":5`)

	require.NoError(t, pool.PendingTxs.Remove(h))
	parts = receive(t, socket)
	assert.Equal(t, TxTopic, parts[0])
	assert.Equal(t, []byte("remove"), parts[1])
	assert.Equal(t, []byte(`"`+h.String()+`"`), parts[2])

	p.Stop()
	select {
	case <-socket.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("socket not closed")
	}
}

func TestFinaliseBeforeInitialise(t *testing.T) {
	assert.Equal(t, fault.NotInitialised, Finalise())
}
