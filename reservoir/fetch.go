// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir

import (
	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// PendingTx - one pending transaction
func (r *Reservoir) PendingTx(hash digest.Hash) (schema.PendingTx, bool, error) {
	return r.mempool.PendingTxs.Get(hash)
}

// TxsByIssuer - pending transactions issued by a key
func (r *Reservoir) TxsByIssuer(pk account.PublicKey) ([]schema.PendingTx, error) {
	return r.byKey(r.mempool.TxsByIssuer, pk)
}

// TxsByRecipient - pending transactions paying a key that is not one
// of their issuers
func (r *Reservoir) TxsByRecipient(pk account.PublicKey) ([]schema.PendingTx, error) {
	return r.byKey(r.mempool.TxsByRecipient, pk)
}

func (r *Reservoir) byKey(index *storage.Collection[account.PublicKey, schema.HashList], pk account.PublicKey) ([]schema.PendingTx, error) {
	txs := []schema.PendingTx{}
	err := r.mempool.DB.Read(func(tx *storage.Tx) error {
		l, _, err := index.In(tx).Get(pk)
		if nil != err {
			return err
		}
		pending := r.mempool.PendingTxs.In(tx)
		for _, hash := range l {
			p, found, err := pending.Get(hash)
			if nil != err {
				return err
			}
			if found {
				txs = append(txs, p)
			}
		}
		return nil
	}, index, r.mempool.PendingTxs)
	return txs, err
}

// OutputsByScript - outputs of pending transactions paying a script
func (r *Reservoir) OutputsByScript(text string) ([]schema.PendingOutput, error) {
	l, _, err := r.mempool.OutputsByScript.Get(text)
	if nil == l {
		l = []schema.PendingOutput{}
	}
	return l, err
}

// IsUtxoReserved - true if a pending transaction spends the output
func (r *Reservoir) IsUtxoReserved(ref transactionrecord.UtxoRef) (bool, error) {
	return r.mempool.PendingUtxoRefs.Has(ref)
}

// IsUdReserved - true if a pending transaction spends the dividend
func (r *Reservoir) IsUdReserved(ref transactionrecord.UdRef) (bool, error) {
	return r.mempool.PendingUdRefs.Has(ref)
}

// ReservedUds - block numbers of the dividends of a key spent by
// pending transactions
func (r *Reservoir) ReservedUds(pk account.PublicKey) (map[uint32]struct{}, error) {
	reserved := make(map[uint32]struct{})
	err := r.mempool.PendingUdRefs.Iter(storage.RangePrefix[transactionrecord.UdRef](schema.UdPrefix(pk))).Keys(func(ref transactionrecord.UdRef) (bool, error) {
		reserved[ref.BlockNumber] = struct{}{}
		return true, nil
	})
	return reserved, err
}
