// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gva_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/reader"
	"github.com/uci-network/ucid/rpc/gva"
	"github.com/uci-network/ucid/rpc/mocks"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/transactionrecord"
	"github.com/uci-network/ucid/workers"
)

func mockService(t *testing.T) (*gva.Service, *mocks.MockQuerier, *mocks.MockPool) {
	return mockServiceWorkers(t, 1)
}

func mockServiceWorkers(t *testing.T, size int) (*gva.Service, *mocks.MockQuerier, *mocks.MockPool) {
	ctl := gomock.NewController(t)
	q := mocks.NewMockQuerier(ctl)
	p := mocks.NewMockPool(ctl)

	pool := workers.New(size, 4)
	t.Cleanup(pool.Stop)

	s, err := gva.New(gva.Configuration{
		Reader:   q,
		Pool:     p,
		Blocks:   mocks.NewMockBlocks(ctl),
		Workers:  pool,
		Currency: fixtures.Currency,
	})
	require.NoError(t, err)
	return s, q, p
}

func TestCorruptionKind(t *testing.T) {
	s, q, _ := mockService(t)

	q.EXPECT().CurrentBlock().Return(schema.BlockMeta{}, false, fault.Corrupted("blocks_meta: %d", 7)).Times(1)

	data, errors := query(t, s, `{ currentBlock { number } }`, nil)
	assert.Nil(t, data["currentBlock"])
	assert.Equal(t, "DbCorrupted", errorKind(t, errors))
}

func TestMempoolFull(t *testing.T) {
	s, _, p := mockService(t)

	tx := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(1000, 0, keyB)},
		"")
	p.EXPECT().AcceptNewTx(gomock.Any(), gomock.Nil()).Return(false, nil).Times(1)

	_, errors := query(t, s, `mutation ($doc: String!) { tx(rawTx: $doc) { hash } }`,
		map[string]interface{}{"doc": tx.Document()})
	assert.Equal(t, "CapacityExceeded", errorKind(t, errors))
}

func TestUtxosOfScriptArguments(t *testing.T) {
	s, q, _ := mockService(t)

	target := amount.New(250, 0)
	q.EXPECT().
		FindScriptUtxos(keyA.Script(), &target, reader.PageInfo{Cursor: "3:" + zeroHash + ":1", Ascending: false, PageSize: 5}).
		Return(reader.UtxosPage{
			Paged: reader.Paged[reader.Utxo]{Data: []reader.Utxo{
				{BlockNumber: 2, OutputIndex: 0, Amount: amount.New(300, 0)},
			}},
			Sum: amount.New(300, 0),
		}, nil).
		Times(1)

	data, errors := query(t, s, `query ($script: String!, $cursor: String!) {
		utxosOfScript(script: $script, amount: 250, pagination: {cursor: $cursor, ord: DESC, pageSize: 5}) {
			edges { cursor node { writtenBlock outputIndex amount { amount } } }
			sum { amount }
		}
	}`, map[string]interface{}{"script": keyA.Script(), "cursor": "3:" + zeroHash + ":1"})
	require.Empty(t, errors)

	utxos := data["utxosOfScript"].(map[string]interface{})
	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"cursor": "2:" + zeroHash + ":0",
			"node": map[string]interface{}{
				"writtenBlock": float64(2),
				"outputIndex":  float64(0),
				"amount":       map[string]interface{}{"amount": float64(300)},
			},
		},
	}, utxos["edges"])
}

const zeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// one slow operation past the deadline rejects the whole batch
func TestBatchDeadline(t *testing.T) {
	s, q, _ := mockServiceWorkers(t, 2)

	q.EXPECT().MembersCount().Return(2, nil).Times(2)
	q.EXPECT().CurrentBlock().DoAndReturn(func() (schema.BlockMeta, bool, error) {
		time.Sleep(300 * time.Millisecond)
		return schema.BlockMeta{Number: 3}, true, nil
	}).Times(1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	results := s.ExecuteBatch(ctx, []gva.Request{
		{Query: `{ membersCount }`},
		{Query: `{ currentBlock { number } }`},
	})
	require.Len(t, results, 2)
	for i, result := range results {
		data, errors := decode(t, result)
		assert.Nil(t, data["membersCount"], "result: %d", i)
		assert.Equal(t, "ReqExecTooLong", errorKind(t, errors), "result: %d", i)
	}

	// the same fast operation within its deadline
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results = s.ExecuteBatch(ctx, []gva.Request{{Query: `{ membersCount }`}})
	data, errors := decode(t, results[0])
	require.Empty(t, errors)
	assert.Equal(t, float64(2), data["membersCount"])
}
