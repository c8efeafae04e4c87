// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir

import (
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/metrics"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
)

// defaults
const (
	DefaultCapacity = 5000
	DefaultExpiry   = 2 * time.Hour
)

// Reservoir - the pending transaction pool
type Reservoir struct {
	log      *logger.L
	mempool  *schema.Mempool
	chain    *schema.ChainState
	capacity int

	// receive time source
	now func() time.Time
}

// New - a pool over the mempool database, checking inputs against
// the chain state
func New(mempool *schema.Mempool, chain *schema.ChainState, capacity int) (*Reservoir, error) {
	if nil == mempool || nil == chain {
		return nil, fault.MissingParameters
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	r := &Reservoir{
		log:      logger.New("reservoir"),
		mempool:  mempool,
		chain:    chain,
		capacity: capacity,
		now:      time.Now,
	}

	n, err := r.Count()
	if nil != err {
		return nil, err
	}
	metrics.SetPendingTransactions(n)
	r.log.Infof("capacity: %d  pending: %d", capacity, n)

	return r, nil
}

// Capacity - transactions accepted before the pool is full
func (r *Reservoir) Capacity() int {
	return r.capacity
}

// Count - number of pending transactions
func (r *Reservoir) Count() (int, error) {
	return r.mempool.PendingTxs.Count()
}

// Subscribe - committed changes of the pool
//
// each batch holds the upserts and removals of one write, a slow
// subscriber loses batches and sees a Lagged count
func (r *Reservoir) Subscribe(buffer int) *storage.Subscription[digest.Hash, schema.PendingTx] {
	return r.mempool.PendingTxs.Subscribe(buffer)
}

// refresh the size gauge after a write
func (r *Reservoir) updated() {
	n, err := r.Count()
	if nil != err {
		r.log.Warnf("count pending: error: %s", err)
		return
	}
	metrics.SetPendingTransactions(n)
}
