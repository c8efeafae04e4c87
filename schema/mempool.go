// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// Mempool - the pending transaction pool and its indices
type Mempool struct {
	DB *storage.Database

	PendingTxs      *storage.Collection[digest.Hash, PendingTx]
	TxsByRecvTime   *storage.Collection[int64, HashList]
	TxsByIssuer     *storage.Collection[account.PublicKey, HashList]
	TxsByRecipient  *storage.Collection[account.PublicKey, HashList]
	PendingUtxoRefs *storage.Collection[transactionrecord.UtxoRef, storage.Unit]
	PendingUdRefs   *storage.Collection[transactionrecord.UdRef, storage.Unit]
	OutputsByScript *storage.Collection[string, []PendingOutput]
}

// OpenMempool - declare the mempool collections over a backend
func OpenMempool(backend storage.Backend, log *logger.L, migrations ...storage.Migration) (*Mempool, error) {
	db, err := storage.NewDatabase(MempoolName, backend, log)
	if nil != err {
		return nil, err
	}
	m := &Mempool{DB: db}

	d := declarer{db: db}
	m.PendingTxs = declare(&d, "pending_txs", 't', HashKey{}, storage.CBOR[PendingTx]{})
	m.TxsByRecvTime = declare(&d, "txs_by_recv_time", 'r', storage.Int64Key{}, HashListCodec{})
	m.TxsByIssuer = declare(&d, "txs_by_issuer", 'i', PublicKeyKey{}, HashListCodec{})
	m.TxsByRecipient = declare(&d, "txs_by_recipient", 'e', PublicKeyKey{}, HashListCodec{})
	m.PendingUtxoRefs = declare(&d, "pending_utxo_refs", 'u', UtxoKey{}, storage.UnitCodec{})
	m.PendingUdRefs = declare(&d, "pending_ud_refs", 'd', UdKey{}, storage.UnitCodec{})
	m.OutputsByScript = declare(&d, "outputs_by_script", 'o', storage.StringKey{}, storage.CBOR[[]PendingOutput]{})
	if nil != d.err {
		return nil, d.err
	}

	if err := db.Open(MempoolVersion, migrations...); nil != err {
		return nil, err
	}
	return m, nil
}

// All - every collection
func (m *Mempool) All() []storage.Handle {
	return []storage.Handle{
		m.PendingTxs,
		m.TxsByRecvTime,
		m.TxsByIssuer,
		m.TxsByRecipient,
		m.PendingUtxoRefs,
		m.PendingUdRefs,
		m.OutputsByScript,
	}
}
