// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"github.com/bitmark-inc/logger"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// database names, also the directory names under the data directory
const (
	ChainStateName = "chain_state"
	MempoolName    = "txs_mp"
)

// current database versions
const (
	ChainStateVersion = 1
	MempoolVersion    = 1
)

// ChainState - the collections maintained by the block indexer
//
// declaration order is the lock order
type ChainState struct {
	DB *storage.Database

	BlocksMeta         *storage.Collection[uint32, BlockMeta]
	BlocksByCommonTime *storage.Collection[BlockTime, storage.Unit]
	Identities         *storage.Collection[account.PublicKey, Identity]
	Certifications     *storage.Collection[Link, uint32]
	Uds                *storage.Collection[transactionrecord.UdRef, storage.Unit]
	UdsReval           *storage.Collection[uint32, amount.Amount]
	BlocksWithUd       *storage.Collection[uint32, storage.Unit]
	Utxos              *storage.Collection[transactionrecord.UtxoRef, UtxoValue]
	GvaUtxos           *storage.Collection[GvaUtxo, amount.Amount]
	ConsumedUtxos      *storage.Collection[Consumed, UtxoValue]
	Balances           *storage.Collection[string, amount.Amount]
	Txs                *storage.Collection[digest.Hash, TxRecord]
	TxsByIssuer        *storage.Collection[WalletBlock, HashList]
	TxsByRecipient     *storage.Collection[WalletBlock, HashList]
	TxsByBlock         *storage.Collection[uint32, HashList]
}

// OpenChainState - declare the chain state collections over a
// backend and check the version
func OpenChainState(backend storage.Backend, log *logger.L, migrations ...storage.Migration) (*ChainState, error) {
	db, err := storage.NewDatabase(ChainStateName, backend, log)
	if nil != err {
		return nil, err
	}
	c := &ChainState{DB: db}

	d := declarer{db: db}
	c.BlocksMeta = declare(&d, "blocks_meta", 'B', storage.Uint32Key{}, storage.CBOR[BlockMeta]{})
	c.BlocksByCommonTime = declare(&d, "blocks_by_common_time", 'M', TimeKey{}, storage.UnitCodec{})
	c.Identities = declare(&d, "identities", 'I', PublicKeyKey{}, storage.CBOR[Identity]{})
	c.Certifications = declare(&d, "certifications", 'L', LinkKey{}, storage.Uint32Key{})
	c.Uds = declare(&d, "uds", 'U', UdKey{}, storage.UnitCodec{})
	c.UdsReval = declare(&d, "uds_reval", 'R', storage.Uint32Key{}, AmountCodec{})
	c.BlocksWithUd = declare(&d, "blocks_with_ud", 'D', storage.Uint32Key{}, storage.UnitCodec{})
	c.Utxos = declare(&d, "utxos", 'O', UtxoKey{}, storage.CBOR[UtxoValue]{})
	c.GvaUtxos = declare(&d, "gva_utxos", 'G', GvaUtxoKey{}, AmountCodec{})
	c.ConsumedUtxos = declare(&d, "consumed_utxos", 'C', ConsumedKey{}, storage.CBOR[UtxoValue]{})
	c.Balances = declare(&d, "balances", 'W', storage.StringKey{}, AmountCodec{})
	c.Txs = declare(&d, "txs", 'T', HashKey{}, storage.CBOR[TxRecord]{})
	c.TxsByIssuer = declare(&d, "txs_by_issuer", 'S', WalletBlockKey{}, HashListCodec{})
	c.TxsByRecipient = declare(&d, "txs_by_recipient", 'P', WalletBlockKey{}, HashListCodec{})
	c.TxsByBlock = declare(&d, "txs_by_block", 'K', storage.Uint32Key{}, HashListCodec{})
	if nil != d.err {
		return nil, d.err
	}

	if err := db.Open(ChainStateVersion, migrations...); nil != err {
		return nil, err
	}
	return c, nil
}

// All - every collection, for transactions spanning the whole state
func (c *ChainState) All() []storage.Handle {
	return []storage.Handle{
		c.BlocksMeta,
		c.BlocksByCommonTime,
		c.Identities,
		c.Certifications,
		c.Uds,
		c.UdsReval,
		c.BlocksWithUd,
		c.Utxos,
		c.GvaUtxos,
		c.ConsumedUtxos,
		c.Balances,
		c.Txs,
		c.TxsByIssuer,
		c.TxsByRecipient,
		c.TxsByBlock,
	}
}

// collect the first declaration error
type declarer struct {
	db  *storage.Database
	err error
}

func declare[K, V any](d *declarer, name string, prefix byte, keys storage.KeyCodec[K], values storage.Codec[V]) *storage.Collection[K, V] {
	if nil != d.err {
		return nil
	}
	c, err := storage.Declare(d.db, name, prefix, keys, values)
	if nil != err {
		d.err = err
		return nil
	}
	return c
}
