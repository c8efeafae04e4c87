// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bca_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/blockrecord"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/indexer"
	"github.com/uci-network/ucid/reader"
	"github.com/uci-network/ucid/reservoir"
	"github.com/uci-network/ucid/rpc/bca"
	"github.com/uci-network/ucid/rpc/gva"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage/memory"
	"github.com/uci-network/ucid/transactionrecord"
	"github.com/uci-network/ucid/workers"
	"github.com/uci-network/ucid/wot"
)

var (
	keyA = fixtures.NewKey(1)
	keyB = fixtures.NewKey(2)
	keyC = fixtures.NewKey(3)
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	code := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(code)
}

type testNode struct {
	indexer *indexer.Indexer
	blocks  *fixtures.Chain
	service *bca.Service
	pool    *workers.Pool
}

func setup(t *testing.T) *testNode {
	log := logger.New(fixtures.LogCategory)

	chain, err := schema.OpenChainState(memory.New(), log)
	require.NoError(t, err)
	mempool, err := schema.OpenMempool(memory.New(), log)
	require.NoError(t, err)

	r, err := reservoir.New(mempool, chain, reservoir.DefaultCapacity)
	require.NoError(t, err)

	graph := wot.NewShared(wot.New(4))
	ix, err := indexer.New(chain, r, graph, 0)
	require.NoError(t, err)

	pool := workers.New(2, 16)
	t.Cleanup(func() {
		pool.Stop()
		_ = chain.DB.Close()
		_ = mempool.DB.Close()
	})

	rd := reader.New(chain, r, graph)
	submitter, err := gva.New(gva.Configuration{
		Reader:   rd,
		Pool:     r,
		Blocks:   chain.BlocksMeta,
		Workers:  pool,
		Currency: fixtures.Currency,
	})
	require.NoError(t, err)

	service, err := bca.New(bca.Configuration{
		Reader:     rd,
		Submitter:  submitter,
		Workers:    pool,
		ForkWindow: 1,
	})
	require.NoError(t, err)

	n := &testNode{
		indexer: ix,
		blocks:  fixtures.NewChain(1600000000),
		service: service,
		pool:    pool,
	}

	genesis := n.blocks.Next(fixtures.Dividend(1000), 0)
	for i, k := range []fixtures.Key{keyA, keyB} {
		genesis.Identities = append(genesis.Identities, blockrecord.Identity{
			PublicKey: k.PublicKey,
			Username:  string(rune('a' + i)),
		})
		genesis.Joiners = append(genesis.Joiners, k.PublicKey)
	}
	require.NoError(t, ix.ApplyBlock(genesis))
	return n
}

// run a batch and index the responses by request id
func serve(t *testing.T, s *bca.Service, requests ...*bca.Request) map[uint32]*bca.Response {
	in := &bytes.Buffer{}
	for _, q := range requests {
		require.NoError(t, bca.WriteFrame(in, q.Marshal()))
	}
	out := &bytes.Buffer{}
	require.NoError(t, s.Serve(context.Background(), in, out))

	responses := map[uint32]*bca.Response{}
	for {
		body, err := bca.ReadFrame(out)
		if io.EOF == err {
			break
		}
		require.NoError(t, err)
		response, err := bca.UnmarshalResponse(body)
		require.NoError(t, err)
		responses[response.ID] = response
	}
	require.Len(t, responses, len(requests))
	return responses
}

func TestFrames(t *testing.T) {
	buffer := &bytes.Buffer{}
	require.NoError(t, bca.WriteFrame(buffer, []byte("abc")))
	assert.Equal(t, []byte{0, 0, 0, 3, 'a', 'b', 'c'}, buffer.Bytes())

	body, err := bca.ReadFrame(buffer)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), body)

	_, err = bca.ReadFrame(buffer)
	assert.Equal(t, io.EOF, err)

	_, err = bca.ReadFrame(bytes.NewReader([]byte{0, 0}))
	assert.Equal(t, fault.InvalidFrame, err)

	_, err = bca.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 9, 1}))
	assert.Equal(t, fault.InvalidFrame, err)

	_, err = bca.ReadFrame(bytes.NewReader([]byte{0xff, 0, 0, 0}))
	assert.Equal(t, fault.InvalidFrame, err)
}

func TestUnmarshalRequestErrors(t *testing.T) {
	_, err := bca.UnmarshalRequest([]byte{0x08, 0x01})
	assert.Equal(t, fault.InvalidRequest, err)

	_, err = bca.UnmarshalRequest([]byte{0x0a})
	assert.Equal(t, fault.InvalidFrame, err)

	q := &bca.Request{ID: 3, Type: bca.Identities, Pubkeys: []account.PublicKey{keyA.PublicKey}}
	decoded, err := bca.UnmarshalRequest(q.Marshal())
	require.NoError(t, err)
	assert.Equal(t, q, decoded)
}

func TestServe(t *testing.T) {
	n := setup(t)

	tx := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(600, 0, keyB), fixtures.Output(400, 0, keyA)},
		"rent")
	require.NoError(t, n.indexer.ApplyBlock(n.blocks.Next(nil, 0, tx)))

	responses := serve(t, n.service,
		&bca.Request{ID: 1, Type: bca.MembersCount},
		&bca.Request{ID: 2, Type: bca.BalancesOfPubkeys, Pubkeys: []account.PublicKey{keyB.PublicKey, keyC.PublicKey}},
		&bca.Request{ID: 3, Type: bca.BalancesOfScripts, Scripts: []string{keyA.Script()}},
		&bca.Request{ID: 4, Type: bca.CurrentUd},
		&bca.Request{ID: 5, Type: bca.CurrentBlockstamp},
		&bca.Request{ID: 6, Type: bca.LastBlockstampOutOfForkWindow},
		&bca.Request{ID: 7, Type: bca.FirstUtxosOfPubkeys, Amount: 5, Pubkeys: []account.PublicKey{keyB.PublicKey, keyC.PublicKey}},
		&bca.Request{ID: 8, Type: bca.Identities, Pubkeys: []account.PublicKey{keyA.PublicKey, keyC.PublicKey}},
		&bca.Request{ID: 9, Type: bca.Ping},
		&bca.Request{ID: 10, Type: bca.BalancesOfScripts, Scripts: []string{"NOT(x)"}},
		&bca.Request{ID: 11, Type: bca.FirstUtxosOfPubkeys},
	)

	require.NotNil(t, responses[1].Count)
	assert.Equal(t, uint64(2), *responses[1].Count)

	require.Len(t, responses[2].Amounts, 2)
	assert.Equal(t, amount.New(1600, 0), *responses[2].Amounts[0])
	assert.Nil(t, responses[2].Amounts[1])

	require.Len(t, responses[3].Amounts, 1)
	assert.Equal(t, amount.New(400, 0), *responses[3].Amounts[0])

	require.NotNil(t, responses[4].Ud)
	assert.Equal(t, amount.New(1000, 0), *responses[4].Ud)

	require.NotNil(t, responses[5].Blockstamp)
	assert.Equal(t, uint32(1), responses[5].Blockstamp.Number)
	assert.Equal(t, n.blocks.Blocks[1].Hash, responses[5].Blockstamp.Hash)

	require.NotNil(t, responses[6].Blockstamp)
	assert.Equal(t, uint32(0), responses[6].Blockstamp.Number)
	assert.Equal(t, n.blocks.Blocks[0].Hash, responses[6].Blockstamp.Hash)

	require.Len(t, responses[7].Utxos, 2)
	require.Len(t, responses[7].Utxos[0], 1)
	assert.Equal(t, bca.Utxo{
		BlockNumber: 1,
		TxHash:      tx.Hash,
		OutputIndex: 0,
		Amount:      amount.New(600, 0),
	}, responses[7].Utxos[0][0])
	assert.Empty(t, responses[7].Utxos[1])

	require.Len(t, responses[8].Identities, 2)
	assert.Equal(t, &bca.Identity{Username: "a", IsMember: true}, responses[8].Identities[0])
	assert.Nil(t, responses[8].Identities[1])

	assert.True(t, responses[9].Pong)

	require.NotNil(t, responses[10].Err)
	assert.Equal(t, "InvalidRequest", responses[10].Err.Kind)

	require.NotNil(t, responses[11].Err)
	assert.Equal(t, "InvalidRequest", responses[11].Err.Kind)
}

func TestSendTxs(t *testing.T) {
	n := setup(t)

	tx := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(1000, 0, keyB)},
		"gift")

	responses := serve(t, n.service, &bca.Request{
		ID:        7,
		Type:      bca.SendTxs,
		Documents: []string{tx.Document(), "garbage", tx.Document()},
	})

	results := responses[7].TxResults
	require.Len(t, results, 3)
	assert.Equal(t, tx.Hash, results[0].Hash)
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, fault.TransactionAlreadyExists.Error(), results[2].Error)
}

func TestServeMalformed(t *testing.T) {
	n := setup(t)

	in := &bytes.Buffer{}
	require.NoError(t, bca.WriteFrame(in, (&bca.Request{ID: 1, Type: bca.Ping}).Marshal()))
	in.Write([]byte{0, 0, 0, 5, 1})

	out := &bytes.Buffer{}
	err := n.service.Serve(context.Background(), in, out)
	assert.Equal(t, fault.InvalidFrame, err)

	body, err := bca.ReadFrame(out)
	require.NoError(t, err)
	response, err := bca.UnmarshalResponse(body)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), response.ID)
	assert.True(t, response.Pong)
}

func TestCancelled(t *testing.T) {
	n := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	response := n.service.Execute(ctx, &bca.Request{ID: 4, Type: bca.Ping})
	assert.Equal(t, uint32(4), response.ID)
	require.NotNil(t, response.Err)
	assert.NotEqual(t, "InvalidRequest", response.Err.Kind)
}

// with every worker busy the batch outlives its deadline, each request
// gets exactly one ReqExecTooLong
func TestServeDeadline(t *testing.T) {
	n := setup(t)

	release := make(chan struct{})
	busy := make(chan struct{}, 2)
	for j := 0; j < 2; j += 1 {
		go func() {
			_, _ = workers.Run(context.Background(), n.pool, func() (bool, error) {
				busy <- struct{}{}
				<-release
				return true, nil
			})
		}()
	}
	<-busy
	<-busy
	defer close(release)

	in := &bytes.Buffer{}
	for _, id := range []uint32{3, 1, 2} {
		require.NoError(t, bca.WriteFrame(in, (&bca.Request{ID: id, Type: bca.Ping}).Marshal()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	out := &bytes.Buffer{}
	err := n.service.Serve(ctx, in, out)
	assert.Equal(t, fault.ReqExecTooLong, err)

	seen := map[uint32]int{}
	for {
		body, err := bca.ReadFrame(out)
		if io.EOF == err {
			break
		}
		require.NoError(t, err)
		response, err := bca.UnmarshalResponse(body)
		require.NoError(t, err)
		require.NotNil(t, response.Err, "id: %d", response.ID)
		assert.Equal(t, "ReqExecTooLong", response.Err.Kind)
		assert.False(t, response.Pong)
		seen[response.ID] += 1
	}
	assert.Equal(t, map[uint32]int{1: 1, 2: 1, 3: 1}, seen)
}
