// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir

import (
	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/metrics"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// the mempool collections inside one write transaction
type pool struct {
	txs        *storage.View[digest.Hash, schema.PendingTx]
	byTime     *storage.View[int64, schema.HashList]
	byIssuer   *storage.View[account.PublicKey, schema.HashList]
	byReceiver *storage.View[account.PublicKey, schema.HashList]
	utxoRefs   *storage.View[transactionrecord.UtxoRef, storage.Unit]
	udRefs     *storage.View[transactionrecord.UdRef, storage.Unit]
	outputs    *storage.View[string, []schema.PendingOutput]
}

func (r *Reservoir) pool(tx *storage.Tx) *pool {
	m := r.mempool
	return &pool{
		txs:        m.PendingTxs.In(tx),
		byTime:     m.TxsByRecvTime.In(tx),
		byIssuer:   m.TxsByIssuer.In(tx),
		byReceiver: m.TxsByRecipient.In(tx),
		utxoRefs:   m.PendingUtxoRefs.In(tx),
		udRefs:     m.PendingUdRefs.In(tx),
		outputs:    m.OutputsByScript.In(tx),
	}
}

// AcceptNewTx - validate and store a submitted transaction
//
// returns false without error if the pool is full, transactions
// issued by self are accepted regardless of capacity
func (r *Reservoir) AcceptNewTx(t *transactionrecord.Transaction, self *account.PublicKey) (bool, error) {
	if nil == t {
		return false, fault.InvalidTransaction
	}
	if err := t.Validate(); nil != err {
		metrics.RecordMempool("invalid")
		return false, err
	}
	t.FillHash()

	full := false
	err := r.mempool.DB.Write(func(tx *storage.Tx) error {
		p := r.pool(tx)

		found, err := p.txs.Has(t.Hash)
		if nil != err {
			return err
		}
		if found {
			return fault.TransactionAlreadyExists
		}

		n, err := p.txs.Count()
		if nil != err {
			return err
		}
		if n >= r.capacity && !issuedBy(t, self) {
			full = true
			return nil
		}

		if err := r.verify(p, t); nil != err {
			return err
		}
		return p.insert(t, r.now().Unix())
	}, r.mempool.All()...)

	switch {
	case nil != err:
		r.log.Warnf("reject tx: %s  error: %s", t.Hash, err)
		metrics.RecordMempool("rejected")
		return false, err
	case full:
		r.log.Debugf("pool full, refuse tx: %s", t.Hash)
		metrics.RecordMempool("full")
		return false, nil
	}

	r.log.Infof("accepted tx: %s", t.Hash)
	metrics.RecordMempool("accepted")
	r.updated()
	return true, nil
}

// AddPendingTxForce - store a transaction without checks
//
// used to give back the transactions of a reverted block
func (r *Reservoir) AddPendingTxForce(t *transactionrecord.Transaction) error {
	if nil == t {
		return fault.InvalidTransaction
	}
	t.FillHash()

	err := r.mempool.DB.Write(func(tx *storage.Tx) error {
		p := r.pool(tx)
		found, err := p.txs.Has(t.Hash)
		if nil != err || found {
			return err
		}
		return p.insert(t, r.now().Unix())
	}, r.mempool.All()...)
	if nil != err {
		return err
	}

	r.log.Debugf("forced tx: %s", t.Hash)
	r.updated()
	return nil
}

func issuedBy(t *transactionrecord.Transaction, self *account.PublicKey) bool {
	if nil == self {
		return false
	}
	for _, pk := range t.Issuers {
		if pk == *self {
			return true
		}
	}
	return false
}

// add the transaction and all its index rows
func (p *pool) insert(t *transactionrecord.Transaction, received int64) error {
	recipients, err := t.RecipientKeys()
	if nil != err {
		return err
	}

	if err := p.txs.Upsert(t.Hash, schema.PendingTx{Tx: t, ReceivedTime: received}); nil != err {
		return err
	}
	if err := addHash(p.byTime, received, t.Hash); nil != err {
		return err
	}
	for _, pk := range t.Issuers {
		if err := addHash(p.byIssuer, pk, t.Hash); nil != err {
			return err
		}
	}
	for _, pk := range recipients {
		if err := addHash(p.byReceiver, pk, t.Hash); nil != err {
			return err
		}
	}

	for _, input := range t.Inputs {
		switch input.Kind {
		case transactionrecord.SourceUtxo:
			err = p.utxoRefs.Upsert(input.UtxoRef(), storage.Unit{})
		case transactionrecord.SourceUd:
			err = p.udRefs.Upsert(input.UdRef(), storage.Unit{})
		default:
			err = fault.InvalidInput
		}
		if nil != err {
			return err
		}
	}

	for k, output := range t.Outputs {
		ws, err := output.Script()
		if nil != err {
			return err
		}
		text := ws.String()
		list, _, err := p.outputs.Get(text)
		if nil != err {
			return err
		}
		list = append(list, schema.PendingOutput{
			TxHash:      t.Hash,
			OutputIndex: uint32(k),
			Amount:      output.Amount(),
		})
		if err := p.outputs.Upsert(text, list); nil != err {
			return err
		}
	}
	return nil
}

// drop the transaction and all its index rows, false if not pending
func (p *pool) remove(hash digest.Hash) (bool, error) {
	pending, found, err := p.txs.Get(hash)
	if nil != err || !found {
		return false, err
	}
	t := pending.Tx

	recipients, err := t.RecipientKeys()
	if nil != err {
		return true, err
	}

	if err := p.txs.Remove(hash); nil != err {
		return true, err
	}
	if err := removeHash(p.byTime, pending.ReceivedTime, hash); nil != err {
		return true, err
	}
	for _, pk := range t.Issuers {
		if err := removeHash(p.byIssuer, pk, hash); nil != err {
			return true, err
		}
	}
	for _, pk := range recipients {
		if err := removeHash(p.byReceiver, pk, hash); nil != err {
			return true, err
		}
	}

	for _, input := range t.Inputs {
		switch input.Kind {
		case transactionrecord.SourceUtxo:
			err = p.utxoRefs.Remove(input.UtxoRef())
		case transactionrecord.SourceUd:
			err = p.udRefs.Remove(input.UdRef())
		}
		if nil != err {
			return true, err
		}
	}

	for _, output := range t.Outputs {
		ws, err := output.Script()
		if nil != err {
			return true, err
		}
		text := ws.String()
		list, found, err := p.outputs.Get(text)
		if nil != err {
			return true, err
		}
		if !found {
			continue
		}
		kept := list[:0]
		for _, o := range list {
			if o.TxHash != hash {
				kept = append(kept, o)
			}
		}
		if 0 == len(kept) {
			err = p.outputs.Remove(text)
		} else {
			err = p.outputs.Upsert(text, kept)
		}
		if nil != err {
			return true, err
		}
	}
	return true, nil
}

func addHash[K any](v *storage.View[K, schema.HashList], key K, h digest.Hash) error {
	l, _, err := v.Get(key)
	if nil != err {
		return err
	}
	return v.Upsert(key, l.Add(h))
}

// empty lists have no row
func removeHash[K any](v *storage.View[K, schema.HashList], key K, h digest.Hash) error {
	l, found, err := v.Get(key)
	if nil != err || !found {
		return err
	}
	l = l.Remove(h)
	if 0 == len(l) {
		return v.Remove(key)
	}
	return v.Upsert(key, l)
}
