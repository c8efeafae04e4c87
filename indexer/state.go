// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexer

import (
	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/script"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

// the chain state collections inside one write transaction
type state struct {
	meta        *storage.View[uint32, schema.BlockMeta]
	times       *storage.View[schema.BlockTime, storage.Unit]
	identities  *storage.View[account.PublicKey, schema.Identity]
	certs       *storage.View[schema.Link, uint32]
	uds         *storage.View[transactionrecord.UdRef, storage.Unit]
	reval       *storage.View[uint32, amount.Amount]
	withUd      *storage.View[uint32, storage.Unit]
	utxos       *storage.View[transactionrecord.UtxoRef, schema.UtxoValue]
	gva         *storage.View[schema.GvaUtxo, amount.Amount]
	consumed    *storage.View[schema.Consumed, schema.UtxoValue]
	balances    *storage.View[string, amount.Amount]
	txs         *storage.View[digest.Hash, schema.TxRecord]
	byIssuer    *storage.View[schema.WalletBlock, schema.HashList]
	byRecipient *storage.View[schema.WalletBlock, schema.HashList]
	byBlock     *storage.View[uint32, schema.HashList]

	maxLinks int
}

func (i *Indexer) state(tx *storage.Tx) *state {
	c := i.chain
	return &state{
		meta:        c.BlocksMeta.In(tx),
		times:       c.BlocksByCommonTime.In(tx),
		identities:  c.Identities.In(tx),
		certs:       c.Certifications.In(tx),
		uds:         c.Uds.In(tx),
		reval:       c.UdsReval.In(tx),
		withUd:      c.BlocksWithUd.In(tx),
		utxos:       c.Utxos.In(tx),
		gva:         c.GvaUtxos.In(tx),
		consumed:    c.ConsumedUtxos.In(tx),
		balances:    c.Balances.In(tx),
		txs:         c.Txs.In(tx),
		byIssuer:    c.TxsByIssuer.In(tx),
		byRecipient: c.TxsByRecipient.In(tx),
		byBlock:     c.TxsByBlock.In(tx),
		maxLinks:    i.maxLinks,
	}
}

func (s *state) tip() (schema.BlockMeta, bool, error) {
	e, found, err := s.meta.Iter(storage.RangeAll[uint32]()).Reverse().First()
	return e.Value, found, err
}

// the dividend in force at a block: the greatest reval at or below it
func (s *state) udAmountAt(number uint32) (amount.Amount, bool, error) {
	e, found, err := s.reval.Iter(storage.RangeAll[uint32]().Through(number)).Reverse().First()
	return e.Value, found, err
}

type member struct {
	publicKey account.PublicKey
	identity  schema.Identity
}

func (s *state) members() ([]member, error) {
	members := []member{}
	err := s.identities.Iter(storage.RangeAll[account.PublicKey]()).ForEach(func(pk account.PublicKey, idty schema.Identity) (bool, error) {
		if idty.IsMember {
			members = append(members, member{publicKey: pk, identity: idty})
		}
		return true, nil
	})
	return members, err
}

func (s *state) identity(pk account.PublicKey) (schema.Identity, error) {
	idty, found, err := s.identities.Get(pk)
	if nil != err {
		return idty, err
	}
	if !found {
		return idty, fault.Corrupted("identity: %s not found", pk)
	}
	return idty, nil
}

// add delta to the balance of a script, zero balances have no row
func (s *state) adjust(text string, delta amount.Amount) error {
	current, _, err := s.balances.Get(text)
	if nil != err {
		return err
	}
	total, err := current.Add(delta)
	if nil != err {
		return fault.Corrupted("balance of: %s  cannot add: %s", text, delta)
	}
	if total.IsNegative() {
		return fault.Corrupted("negative balance: %s  for script: %s", total, text)
	}
	if total.IsZero() {
		return s.balances.Remove(text)
	}
	return s.balances.Upsert(text, total)
}

func (s *state) credit(text string, a amount.Amount) error {
	return s.adjust(text, a)
}

func (s *state) debit(text string, a amount.Amount) error {
	return s.adjust(text, a.Neg())
}

func singleSig(pk account.PublicKey) string {
	return script.SingleSig(pk).String()
}

// stored script text is canonical
func scriptHash(text string) digest.Hash {
	return digest.NewSHA3([]byte(text))
}

func gvaKey(value schema.UtxoValue, ref transactionrecord.UtxoRef) schema.GvaUtxo {
	return schema.GvaUtxo{
		ScriptHash:  scriptHash(value.Script),
		BlockNumber: value.WrittenBlock,
		TxHash:      ref.TxHash,
		OutputIndex: ref.OutputIndex,
	}
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

// wallet scripts indexing a transaction
func walletScripts(t *transactionrecord.Transaction) ([]*script.WalletScript, []*script.WalletScript, error) {
	recipients, err := t.RecipientScripts()
	if nil != err {
		return nil, nil, err
	}
	return t.IssuerScripts(), recipients, nil
}
