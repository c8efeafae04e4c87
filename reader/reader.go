// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package reader - read only queries joining the committed chain
// state with the pending transactions
package reader

import (
	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/script"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
	"github.com/uci-network/ucid/wot"
)

//go:generate mockgen -source=reader.go -destination=mocks/mempool.go -package=mocks

// Mempool - the pending state consulted by queries
type Mempool interface {
	OutputsByScript(text string) ([]schema.PendingOutput, error)
	IsUtxoReserved(ref transactionrecord.UtxoRef) (bool, error)
	ReservedUds(pk account.PublicKey) (map[uint32]struct{}, error)
	TxsByIssuer(pk account.PublicKey) ([]schema.PendingTx, error)
	TxsByRecipient(pk account.PublicKey) ([]schema.PendingTx, error)
}

// Reader - queries over one chain state
type Reader struct {
	chain *schema.ChainState
	pool  Mempool
	graph *wot.Shared
}

// New - pool and graph may be nil
func New(chain *schema.ChainState, pool Mempool, graph *wot.Shared) *Reader {
	return &Reader{
		chain: chain,
		pool:  pool,
		graph: graph,
	}
}

// CurrentBlock - metadata of the last applied block
func (r *Reader) CurrentBlock() (schema.BlockMeta, bool, error) {
	e, found, err := r.chain.BlocksMeta.Iter(storage.RangeAll[uint32]()).Reverse().First()
	return e.Value, found, err
}

// BlockMeta - metadata of one block
func (r *Reader) BlockMeta(number uint32) (schema.BlockMeta, bool, error) {
	return r.chain.BlocksMeta.Get(number)
}

// Identity - membership record of a key
func (r *Reader) Identity(pk account.PublicKey) (schema.Identity, bool, error) {
	return r.chain.Identities.Get(pk)
}

// MembersCount - number of current members
func (r *Reader) MembersCount() (int, error) {
	n := 0
	err := r.chain.Identities.Iter(storage.RangeAll[account.PublicKey]()).Values(func(idty schema.Identity) (bool, error) {
		if idty.IsMember {
			n += 1
		}
		return true, nil
	})
	return n, err
}

// UdAmountAt - the dividend in force at a block
func (r *Reader) UdAmountAt(number uint32) (amount.Amount, bool, error) {
	e, found, err := r.chain.UdsReval.Iter(storage.RangeAll[uint32]().Through(number)).Reverse().First()
	return e.Value, found, err
}

// CurrentUd - the last dividend amount and the block that set it
func (r *Reader) CurrentUd() (amount.Amount, uint32, bool, error) {
	e, found, err := r.chain.UdsReval.Iter(storage.RangeAll[uint32]()).Reverse().First()
	return e.Value, e.Key, found, err
}

// Balance - committed balance of a script, pending spends are not
// subtracted
func (r *Reader) Balance(text string) (amount.Amount, error) {
	canonical, err := canonicalScript(text)
	if nil != err {
		return amount.Zero, err
	}
	a, _, err := r.chain.Balances.Get(canonical)
	return a, err
}

// Balances - committed balances of several scripts in one snapshot
func (r *Reader) Balances(texts []string) ([]amount.Amount, error) {
	canonical := make([]string, len(texts))
	for i, text := range texts {
		c, err := canonicalScript(text)
		if nil != err {
			return nil, err
		}
		canonical[i] = c
	}

	result := make([]amount.Amount, len(texts))
	err := r.chain.DB.Read(func(tx *storage.Tx) error {
		balances := r.chain.Balances.In(tx)
		for i, text := range canonical {
			a, _, err := balances.Get(text)
			if nil != err {
				return err
			}
			result[i] = a
		}
		return nil
	}, r.chain.Balances)
	return result, err
}

func canonicalScript(text string) (string, error) {
	ws, err := script.Parse(text)
	if nil != err {
		return "", fault.InvalidScript
	}
	return ws.String(), nil
}

// the revaluation rows, ascending, for resolving many dividends in
// one pass
type revaluations []storage.Entry[uint32, amount.Amount]

func (r *Reader) revaluations(tx *storage.Tx) (revaluations, error) {
	return r.chain.UdsReval.In(tx).Iter(storage.RangeAll[uint32]()).Collect(0)
}

// greatest revaluation at or below number
func (rv revaluations) at(number uint32) (amount.Amount, bool) {
	lo, hi := 0, len(rv)
	for lo < hi {
		mid := (lo + hi) / 2
		if rv[mid].Key <= number {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if 0 == lo {
		return amount.Zero, false
	}
	return rv[lo-1].Value, true
}
