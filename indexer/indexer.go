// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/blockrecord"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/metrics"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
	"github.com/uci-network/ucid/wot"
)

// DefaultReorgHorizon - blocks whose consumed outputs are kept for revert
const DefaultReorgHorizon = 100

//go:generate mockgen -source=indexer.go -destination=mocks/pool.go -package=mocks

// Pool - the pending transactions affected by blocks
type Pool interface {
	RemoveWritten(txs []*transactionrecord.Transaction) error
	AddPendingTxForce(tx *transactionrecord.Transaction) error
}

// Indexer - serialises block application on one chain state
type Indexer struct {
	sync.Mutex

	log     *logger.L
	chain   *schema.ChainState
	pool    Pool
	graph   *wot.Shared
	horizon uint32
	halted  atomic.Bool

	// issued certification cap applied to chain state links
	maxLinks int

	// highest block applied since start, bounds the revert depth
	highest    uint32
	hasHighest bool
}

// New - create an indexer, pool and graph may be nil
func New(chain *schema.ChainState, pool Pool, graph *wot.Shared, horizon uint32) (*Indexer, error) {
	if nil == chain {
		return nil, fault.MissingParameters
	}
	if 0 == horizon {
		horizon = DefaultReorgHorizon
	}

	log := logger.New("indexer")

	i := &Indexer{
		log:      log,
		chain:    chain,
		pool:     pool,
		graph:    graph,
		horizon:  horizon,
		maxLinks: wot.DefaultMaxLinks,
	}
	if nil != graph {
		_ = graph.Read(func(g *wot.Graph) error {
			i.maxLinks = g.MaxLinks()
			return nil
		})
	}

	tip, found, err := i.Tip()
	if nil != err {
		return nil, err
	}
	if found {
		i.highest = tip.Number
		i.hasHighest = true
		log.Infof("chain state at block: %d  hash: %s", tip.Number, tip.Hash)
	} else {
		log.Info("chain state is empty")
	}
	return i, nil
}

// Horizon - the reorg horizon
func (i *Indexer) Horizon() uint32 {
	return i.horizon
}

// Halted - true once a corruption has been detected
func (i *Indexer) Halted() bool {
	return i.halted.Load()
}

// Tip - metadata of the last applied block
func (i *Indexer) Tip() (schema.BlockMeta, bool, error) {
	e, found, err := i.chain.BlocksMeta.Iter(storage.RangeAll[uint32]()).Reverse().First()
	return e.Value, found, err
}

// ApplyBlock - index the next block
func (i *Indexer) ApplyBlock(b *blockrecord.Block) error {
	i.Lock()
	defer i.Unlock()
	return i.apply(b)
}

// RevertBlock - remove the tip block
func (i *Indexer) RevertBlock(b *blockrecord.Block) error {
	i.Lock()
	defer i.Unlock()
	return i.revert(b)
}

// ApplyChunk - apply consecutive blocks, stopping at the first error
func (i *Indexer) ApplyChunk(blocks []*blockrecord.Block) error {
	i.Lock()
	defer i.Unlock()

	for k, b := range blocks {
		if k > 0 && b.Number != blocks[k-1].Number+1 {
			return fault.BlockOutOfOrder
		}
	}
	for _, b := range blocks {
		if err := i.apply(b); nil != err {
			return err
		}
	}
	return nil
}

// RevertChunk - revert consecutive blocks, highest first
func (i *Indexer) RevertChunk(blocks []*blockrecord.Block) error {
	i.Lock()
	defer i.Unlock()

	for k, b := range blocks {
		if k > 0 && b.Number+1 != blocks[k-1].Number {
			return fault.BlockOutOfOrder
		}
	}
	for _, b := range blocks {
		if err := i.revert(b); nil != err {
			return err
		}
	}
	return nil
}

func (i *Indexer) apply(b *blockrecord.Block) error {
	if i.halted.Load() {
		return fault.IndexerHalted
	}
	if nil == b {
		return fault.InvalidBlock
	}
	if err := b.Check(); nil != err {
		return err
	}

	started := time.Now()

	var changes wotChanges
	err := i.chain.DB.Write(func(tx *storage.Tx) error {
		s := i.state(tx)
		tip, found, err := s.tip()
		if nil != err {
			return err
		}
		switch {
		case !found && 0 != b.Number:
			return fault.BlockOutOfOrder
		case found && (b.Number != tip.Number+1 || b.PreviousHash != tip.Hash):
			return fault.BlockOutOfOrder
		}
		changes, err = s.applyBlock(b, i.horizon)
		return err
	}, i.chain.All()...)
	if nil != err {
		return i.failed("apply", b.Number, err)
	}

	if !i.hasHighest || b.Number > i.highest {
		i.highest = b.Number
		i.hasHighest = true
	}

	i.log.Infof("applied block: %d  hash: %s  txs: %d", b.Number, b.Hash, len(b.Transactions))
	metrics.RecordBlock("apply", b.Number, started)

	i.applyGraph(b.Number, changes)

	if nil != i.pool && 0 != len(b.Transactions) {
		if err := i.pool.RemoveWritten(b.Transactions); nil != err {
			i.log.Warnf("remove written transactions of block: %d  error: %s", b.Number, err)
		}
	}
	return nil
}

func (i *Indexer) revert(b *blockrecord.Block) error {
	if i.halted.Load() {
		return fault.IndexerHalted
	}
	if nil == b {
		return fault.InvalidBlock
	}
	if err := b.Check(); nil != err {
		return err
	}
	if i.hasHighest && i.highest > b.Number && i.highest-b.Number > i.horizon {
		return fault.BeyondReorgHorizon
	}

	started := time.Now()

	var changes wotChanges
	err := i.chain.DB.Write(func(tx *storage.Tx) error {
		s := i.state(tx)
		tip, found, err := s.tip()
		if nil != err {
			return err
		}
		if !found || tip.Number != b.Number || tip.Hash != b.Hash {
			return fault.NotTheTip
		}
		changes, err = s.revertBlock(b)
		return err
	}, i.chain.All()...)
	if nil != err {
		return i.failed("revert", b.Number, err)
	}

	i.log.Infof("reverted block: %d  hash: %s  txs: %d", b.Number, b.Hash, len(b.Transactions))
	previous := b.Number
	if previous > 0 {
		previous -= 1
	}
	metrics.RecordBlock("revert", previous, started)

	i.revertGraph(b.Number, changes)

	if nil != i.pool {
		for _, t := range b.Transactions {
			if err := i.pool.AddPendingTxForce(t); nil != err {
				i.log.Warnf("reinsert transaction: %s  error: %s", t.Hash, err)
			}
		}
	}
	return nil
}

// corruption halts further block processing
func (i *Indexer) failed(operation string, number uint32, err error) error {
	if fault.IsErrCorrupted(err) {
		i.halted.Store(true)
		i.log.Criticalf("%s block: %d  error: %s", operation, number, err)
		return fault.ReportCorruption(err)
	}
	i.log.Errorf("%s block: %d  error: %s", operation, number, err)
	return err
}
