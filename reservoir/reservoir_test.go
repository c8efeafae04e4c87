// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir_test

import (
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/blockrecord"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/fixtures"
	"github.com/uci-network/ucid/indexer"
	"github.com/uci-network/ucid/reservoir"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/storage/memory"
	"github.com/uci-network/ucid/transactionrecord"
)

var _ indexer.Pool = (*reservoir.Reservoir)(nil)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	code := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(code)
}

var (
	keyA = fixtures.NewKey(1)
	keyB = fixtures.NewKey(2)
	keyC = fixtures.NewKey(3)
)

type testPool struct {
	chain     *schema.ChainState
	mempool   *schema.Mempool
	indexer   *indexer.Indexer
	reservoir *reservoir.Reservoir
	blocks    *fixtures.Chain
	clock     int64
}

// block 0 makes A and B members and gives each a dividend of 1000
func setup(t *testing.T, capacity int) *testPool {
	log := logger.New(fixtures.LogCategory)

	chain, err := schema.OpenChainState(memory.New(), log)
	require.NoError(t, err)
	mempool, err := schema.OpenMempool(memory.New(), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = chain.DB.Close()
		_ = mempool.DB.Close()
	})

	r, err := reservoir.New(mempool, chain, capacity)
	require.NoError(t, err)

	ix, err := indexer.New(chain, r, nil, 0)
	require.NoError(t, err)

	p := &testPool{
		chain:     chain,
		mempool:   mempool,
		indexer:   ix,
		reservoir: r,
		blocks:    fixtures.NewChain(1600000000),
		clock:     1000,
	}
	r.SetClock(func() time.Time {
		return time.Unix(p.clock, 0)
	})

	b0 := p.blocks.Next(fixtures.Dividend(1000), 0)
	b0.Identities = []blockrecord.Identity{
		{PublicKey: keyA.PublicKey, Username: "alice"},
		{PublicKey: keyB.PublicKey, Username: "bob"},
	}
	b0.Joiners = []account.PublicKey{keyA.PublicKey, keyB.PublicKey}
	require.NoError(t, ix.ApplyBlock(b0))

	return p
}

func (p *testPool) count(t *testing.T) int {
	n, err := p.reservoir.Count()
	require.NoError(t, err)
	return n
}

// every mempool collection is empty
func (p *testPool) assertEmpty(t *testing.T) {
	for _, e := range p.mempool.DB.Explorables() {
		n, err := e.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, n, "collection: %s", e.Name())
	}
}

func spendUd(from fixtures.Key, to fixtures.Key, comment string) *transactionrecord.Transaction {
	return fixtures.Transaction(from,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, from, 0)},
		[]transactionrecord.Output{fixtures.Output(1000, 0, to)},
		comment)
}

func TestAcceptNewTx(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	tx := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(700, 0, keyC), fixtures.Output(300, 0, keyA)},
		"pay")

	ok, err := r.AcceptNewTx(tx, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, p.count(t))

	pending, found, err := r.PendingTx(tx.Hash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1000), pending.ReceivedTime)
	assert.Equal(t, tx.Hash, pending.Tx.Hash)

	reserved, err := r.IsUdReserved(transactionrecord.UdRef{PublicKey: keyA.PublicKey, BlockNumber: 0})
	require.NoError(t, err)
	assert.True(t, reserved)

	reserved, err = r.IsUdReserved(transactionrecord.UdRef{PublicKey: keyB.PublicKey, BlockNumber: 0})
	require.NoError(t, err)
	assert.False(t, reserved)

	uds, err := r.ReservedUds(keyA.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, map[uint32]struct{}{0: {}}, uds)

	sent, err := r.TxsByIssuer(keyA.PublicKey)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, tx.Hash, sent[0].Tx.Hash)

	// change to the issuer is not a reception
	received, err := r.TxsByRecipient(keyA.PublicKey)
	require.NoError(t, err)
	assert.Empty(t, received)

	received, err = r.TxsByRecipient(keyC.PublicKey)
	require.NoError(t, err)
	require.Len(t, received, 1)

	outputs, err := r.OutputsByScript(keyC.Script())
	require.NoError(t, err)
	assert.Equal(t, []schema.PendingOutput{{TxHash: tx.Hash, OutputIndex: 0, Amount: amount.New(700, 0)}}, outputs)

	outputs, err = r.OutputsByScript(keyA.Script())
	require.NoError(t, err)
	assert.Equal(t, []schema.PendingOutput{{TxHash: tx.Hash, OutputIndex: 1, Amount: amount.New(300, 0)}}, outputs)

	outputs, err = r.OutputsByScript(keyB.Script())
	require.NoError(t, err)
	assert.Empty(t, outputs)

	_, err = r.AcceptNewTx(tx, nil)
	assert.Equal(t, fault.TransactionAlreadyExists, err)
	assert.Equal(t, 1, p.count(t))
}

func TestDisjointInputs(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	tx1 := spendUd(keyA, keyC, "first")
	tx2 := spendUd(keyA, keyB, "second")
	require.NotEqual(t, tx1.Hash, tx2.Hash)

	ok, err := r.AcceptNewTx(tx1, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.AcceptNewTx(tx2, nil)
	assert.Equal(t, fault.DoubleSpend, err)
	assert.False(t, ok)
	assert.Equal(t, 1, p.count(t))

	found, err := r.RemovePendingTxByHash(tx1.Hash)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = r.RemovePendingTxByHash(tx1.Hash)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = r.AcceptNewTx(tx2, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, p.count(t))
}

func TestRejectedInputs(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	// dividend of a key that is not an issuer
	stolen := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyB, 0)},
		[]transactionrecord.Output{fixtures.Output(1000, 0, keyA)},
		"stolen")
	_, err := r.AcceptNewTx(stolen, nil)
	assert.Equal(t, fault.InvalidInput, err)

	// dividend never emitted
	missing := fixtures.Transaction(keyC,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyC, 0)},
		[]transactionrecord.Output{fixtures.Output(1000, 0, keyA)},
		"missing")
	_, err = r.AcceptNewTx(missing, nil)
	assert.Equal(t, fault.InputNotFound, err)

	unknown := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UtxoInput(10, 0, missing.Hash, 0)},
		[]transactionrecord.Output{fixtures.Output(10, 0, keyB)},
		"unknown")
	_, err = r.AcceptNewTx(unknown, nil)
	assert.Equal(t, fault.InputNotFound, err)

	wrongAmount := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(999, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(999, 0, keyB)},
		"amount")
	_, err = r.AcceptNewTx(wrongAmount, nil)
	assert.Equal(t, fault.InvalidInput, err)

	unbalanced := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(900, 0, keyB)},
		"unbalanced")
	_, err = r.AcceptNewTx(unbalanced, nil)
	assert.Equal(t, fault.InputsOutputsMismatch, err)

	// same value written in another base
	rebased := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(60, 1, keyB), fixtures.Output(400, 0, keyA)},
		"rebased")

	tampered := spendUd(keyA, keyB, "signed")
	tampered.Comment = "changed"
	_, err = r.AcceptNewTx(tampered, nil)
	assert.True(t, fault.IsErrInvalid(err), "error: %v", err)

	assert.Equal(t, 0, p.count(t))
	p.assertEmpty(t)

	ok, err := r.AcceptNewTx(rebased, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

// only the keys named by an output's condition may reserve it
func TestForeignOutput(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	paid := spendUd(keyB, keyB, "to self")
	b1 := p.blocks.Next(nil, 0, paid)
	require.NoError(t, p.indexer.ApplyBlock(b1))

	steal := fixtures.Transaction(keyC,
		[]transactionrecord.Input{fixtures.UtxoInput(1000, 0, paid.Hash, 0)},
		[]transactionrecord.Output{fixtures.Output(1000, 0, keyC)},
		"steal")
	ok, err := r.AcceptNewTx(steal, nil)
	assert.Equal(t, fault.InvalidInput, err)
	assert.False(t, ok)
	p.assertEmpty(t)

	// pending outputs are checked the same way
	pending := spendUd(keyA, keyA, "pending to self")
	ok, err = r.AcceptNewTx(pending, nil)
	require.NoError(t, err)
	require.True(t, ok)

	stealPending := fixtures.Transaction(keyC,
		[]transactionrecord.Input{fixtures.UtxoInput(1000, 0, pending.Hash, 0)},
		[]transactionrecord.Output{fixtures.Output(1000, 0, keyC)},
		"steal pending")
	_, err = r.AcceptNewTx(stealPending, nil)
	assert.Equal(t, fault.InvalidInput, err)

	own := fixtures.Transaction(keyB,
		[]transactionrecord.Input{fixtures.UtxoInput(1000, 0, paid.Hash, 0)},
		[]transactionrecord.Output{fixtures.Output(1000, 0, keyA)},
		"own")
	ok, err = r.AcceptNewTx(own, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, p.count(t))
}

func TestCapacity(t *testing.T) {
	p := setup(t, 1)
	r := p.reservoir

	ok, err := r.AcceptNewTx(spendUd(keyA, keyC, "a"), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	fromB := spendUd(keyB, keyC, "b")
	ok, err = r.AcceptNewTx(fromB, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, p.count(t))

	// another node's key does not bypass the limit
	ok, err = r.AcceptNewTx(fromB, &keyC.PublicKey)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.AcceptNewTx(fromB, &keyB.PublicKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, p.count(t))
}

func TestSpendPendingOutput(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	tx1 := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(600, 0, keyB), fixtures.Output(400, 0, keyA)},
		"first")
	ok, err := r.AcceptNewTx(tx1, nil)
	require.NoError(t, err)
	require.True(t, ok)

	tx2 := fixtures.Transaction(keyB,
		[]transactionrecord.Input{fixtures.UtxoInput(600, 0, tx1.Hash, 0)},
		[]transactionrecord.Output{fixtures.Output(600, 0, keyC)},
		"second")
	ok, err = r.AcceptNewTx(tx2, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	reserved, err := r.IsUtxoReserved(transactionrecord.UtxoRef{TxHash: tx1.Hash, OutputIndex: 0})
	require.NoError(t, err)
	assert.True(t, reserved)

	beyond := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UtxoInput(400, 0, tx1.Hash, 2)},
		[]transactionrecord.Output{fixtures.Output(400, 0, keyC)},
		"beyond")
	_, err = r.AcceptNewTx(beyond, nil)
	assert.Equal(t, fault.InputNotFound, err)

	double := fixtures.Transaction(keyB,
		[]transactionrecord.Input{fixtures.UtxoInput(600, 0, tx1.Hash, 0)},
		[]transactionrecord.Output{fixtures.Output(600, 0, keyA)},
		"double")
	_, err = r.AcceptNewTx(double, nil)
	assert.Equal(t, fault.DoubleSpend, err)

	removed, err := r.RemovePendingTxs([]digest.Hash{tx1.Hash, tx2.Hash, beyond.Hash})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	p.assertEmpty(t)
}

func TestTrimExpired(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	old := spendUd(keyA, keyC, "old")
	p.clock = 100
	ok, err := r.AcceptNewTx(old, nil)
	require.NoError(t, err)
	require.True(t, ok)

	recent := spendUd(keyB, keyC, "recent")
	p.clock = 200
	ok, err = r.AcceptNewTx(recent, nil)
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := r.TrimExpiredNonWrittenTxs(100)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = r.TrimExpiredNonWrittenTxs(150)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, err := r.PendingTx(old.Hash)
	require.NoError(t, err)
	assert.False(t, found)

	outputs, err := r.OutputsByScript(keyC.Script())
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, recent.Hash, outputs[0].TxHash)

	reserved, err := r.IsUdReserved(transactionrecord.UdRef{PublicKey: keyA.PublicKey, BlockNumber: 0})
	require.NoError(t, err)
	assert.False(t, reserved)

	removed, err = r.TrimExpiredNonWrittenTxs(201)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	p.assertEmpty(t)
}

func TestRemoveAllPendingTxs(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	for _, tx := range []*transactionrecord.Transaction{spendUd(keyA, keyC, "a"), spendUd(keyB, keyC, "b")} {
		ok, err := r.AcceptNewTx(tx, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 2, p.count(t))

	require.NoError(t, r.RemoveAllPendingTxs())
	p.assertEmpty(t)
}

// written transactions leave the pool, reverted ones come back
func TestBlockWrittenAndReverted(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	tx := spendUd(keyA, keyC, "written")
	other := spendUd(keyB, keyC, "still pending")
	for _, t1 := range []*transactionrecord.Transaction{tx, other} {
		ok, err := r.AcceptNewTx(t1, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}

	b1 := p.blocks.Next(nil, 0, tx)
	require.NoError(t, p.indexer.ApplyBlock(b1))

	assert.Equal(t, 1, p.count(t))
	_, found, err := r.PendingTx(tx.Hash)
	require.NoError(t, err)
	assert.False(t, found)

	reserved, err := r.IsUdReserved(transactionrecord.UdRef{PublicKey: keyA.PublicKey, BlockNumber: 0})
	require.NoError(t, err)
	assert.False(t, reserved)

	// now in the chain
	_, err = r.AcceptNewTx(tx, nil)
	assert.Equal(t, fault.TransactionAlreadyExists, err)

	require.NoError(t, p.indexer.RevertBlock(b1))

	assert.Equal(t, 2, p.count(t))
	_, found, err = r.PendingTx(tx.Hash)
	require.NoError(t, err)
	assert.True(t, found)

	reserved, err = r.IsUdReserved(transactionrecord.UdRef{PublicKey: keyA.PublicKey, BlockNumber: 0})
	require.NoError(t, err)
	assert.True(t, reserved)
}

// a block spending a pending tx's source drops that tx and its spenders
func TestWrittenConflict(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	tx1 := fixtures.Transaction(keyA,
		[]transactionrecord.Input{fixtures.UdInput(1000, 0, keyA, 0)},
		[]transactionrecord.Output{fixtures.Output(600, 0, keyB), fixtures.Output(400, 0, keyA)},
		"pending")
	tx2 := fixtures.Transaction(keyB,
		[]transactionrecord.Input{fixtures.UtxoInput(600, 0, tx1.Hash, 0)},
		[]transactionrecord.Output{fixtures.Output(600, 0, keyC)},
		"chained")
	other := spendUd(keyB, keyC, "unrelated")
	for _, t1 := range []*transactionrecord.Transaction{tx1, tx2, other} {
		ok, err := r.AcceptNewTx(t1, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}

	conflict := spendUd(keyA, keyC, "in block")
	b1 := p.blocks.Next(nil, 0, conflict)
	require.NoError(t, p.indexer.ApplyBlock(b1))

	assert.Equal(t, 1, p.count(t))
	for _, hash := range []digest.Hash{tx1.Hash, tx2.Hash} {
		_, found, err := r.PendingTx(hash)
		require.NoError(t, err)
		assert.False(t, found, "tx: %s", hash)
	}
	_, found, err := r.PendingTx(other.Hash)
	require.NoError(t, err)
	assert.True(t, found)

	reserved, err := r.IsUtxoReserved(transactionrecord.UtxoRef{TxHash: tx1.Hash, OutputIndex: 0})
	require.NoError(t, err)
	assert.False(t, reserved)

	reserved, err = r.IsUdReserved(transactionrecord.UdRef{PublicKey: keyB.PublicKey, BlockNumber: 0})
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestSubscribe(t *testing.T) {
	p := setup(t, 0)
	r := p.reservoir

	sub := r.Subscribe(4)
	defer sub.Close()

	tx := spendUd(keyA, keyC, "watched")
	ok, err := r.AcceptNewTx(tx, nil)
	require.NoError(t, err)
	require.True(t, ok)

	batch := receive(t, sub)
	require.Len(t, batch.Events, 1)
	assert.Equal(t, storage.EventUpsert, batch.Events[0].Kind)
	assert.Equal(t, tx.Hash, batch.Events[0].Key)
	assert.Equal(t, tx.Hash, batch.Events[0].Value.Tx.Hash)
	assert.Equal(t, uint64(0), batch.Lagged)

	_, err = r.RemovePendingTxByHash(tx.Hash)
	require.NoError(t, err)

	batch = receive(t, sub)
	require.Len(t, batch.Events, 1)
	assert.Equal(t, storage.EventRemove, batch.Events[0].Kind)
	assert.Equal(t, tx.Hash, batch.Events[0].Key)
}

func receive(t *testing.T, sub *storage.Subscription[digest.Hash, schema.PendingTx]) storage.Events[digest.Hash, schema.PendingTx] {
	select {
	case batch, ok := <-sub.C():
		require.True(t, ok)
		return batch
	case <-time.After(time.Second):
		require.FailNow(t, "no event received")
	}
	return storage.Events[digest.Hash, schema.PendingTx]{}
}
