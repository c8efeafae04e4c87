// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexer

import (
	"github.com/uci-network/ucid/blockrecord"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

func (s *state) revertBlock(b *blockrecord.Block) (wotChanges, error) {
	changes := wotChanges{}
	n := b.Number

	for k := len(b.Transactions) - 1; k >= 0; k -= 1 {
		if err := s.revertTransaction(b, b.Transactions[k]); nil != err {
			return changes, err
		}
	}

	if err := s.revertDividend(b); nil != err {
		return changes, err
	}

	if err := s.revertIdentities(b, &changes); nil != err {
		return changes, err
	}

	if err := s.times.Remove(schema.BlockTime{MedianTime: b.MedianTime, Number: n}); nil != err {
		return changes, err
	}
	return changes, s.meta.Remove(n)
}

func (s *state) revertTransaction(b *blockrecord.Block, t *transactionrecord.Transaction) error {
	n := b.Number

	found, err := s.txs.Has(t.Hash)
	if nil != err {
		return err
	}
	if !found {
		return fault.Corrupted("transaction: %s not written", t.Hash)
	}

	issuers, recipients, err := walletScripts(t)
	if nil != err {
		return err
	}
	if err := removeHash(s.byBlock, n, t.Hash); nil != err {
		return err
	}
	for _, ws := range recipients {
		if err := removeHash(s.byRecipient, schema.WalletBlock{ScriptHash: ws.Hash(), BlockNumber: n}, t.Hash); nil != err {
			return err
		}
	}
	for _, ws := range issuers {
		if err := removeHash(s.byIssuer, schema.WalletBlock{ScriptHash: ws.Hash(), BlockNumber: n}, t.Hash); nil != err {
			return err
		}
	}
	if err := s.txs.Remove(t.Hash); nil != err {
		return err
	}

	for k := len(t.Outputs) - 1; k >= 0; k -= 1 {
		ref := transactionrecord.UtxoRef{TxHash: t.Hash, OutputIndex: uint32(k)}
		value, found, err := s.utxos.Get(ref)
		if nil != err {
			return err
		}
		if !found {
			return fault.Corrupted("output: %s:%d  utxo not found", t.Hash, k)
		}
		if err := s.utxos.Remove(ref); nil != err {
			return err
		}
		if err := s.gva.Remove(gvaKey(value, ref)); nil != err {
			return err
		}
		if err := s.debit(value.Script, value.Amount); nil != err {
			return err
		}
	}

	for k := len(t.Inputs) - 1; k >= 0; k -= 1 {
		if err := s.restore(n, t.Inputs[k]); nil != err {
			return err
		}
	}
	return nil
}

// give back a spent input
func (s *state) restore(n uint32, input transactionrecord.Input) error {
	switch input.Kind {
	case transactionrecord.SourceUtxo:
		ref := input.UtxoRef()
		key := schema.Consumed{BlockNumber: n, TxHash: ref.TxHash, OutputIndex: ref.OutputIndex}
		value, found, err := s.consumed.Get(key)
		if nil != err {
			return err
		}
		if !found {
			return fault.BeyondReorgHorizon
		}
		if err := s.utxos.Upsert(ref, value); nil != err {
			return err
		}
		if err := s.gva.Upsert(gvaKey(value, ref), value.Amount); nil != err {
			return err
		}
		if err := s.credit(value.Script, value.Amount); nil != err {
			return err
		}
		return s.consumed.Remove(key)

	case transactionrecord.SourceUd:
		ref := input.UdRef()
		ud, found, err := s.udAmountAt(ref.BlockNumber)
		if nil != err {
			return err
		}
		if !found {
			return fault.Corrupted("input: %s  no dividend amount", input)
		}
		if err := s.uds.Upsert(ref, storage.Unit{}); nil != err {
			return err
		}
		return s.credit(singleSig(ref.PublicKey), ud)

	default:
		return fault.InvalidInput
	}
}

func (s *state) revertDividend(b *blockrecord.Block) error {
	ud, ok := b.UniversalDividend()
	if !ok {
		return nil
	}
	n := b.Number

	members, err := s.members()
	if nil != err {
		return err
	}
	for _, m := range members {
		ref := transactionrecord.UdRef{PublicKey: m.publicKey, BlockNumber: n}
		if err := s.uds.Remove(ref); nil != err {
			return err
		}
		if nil != m.identity.FirstUd && n == *m.identity.FirstUd {
			m.identity.FirstUd = nil
			if err := s.identities.Upsert(m.publicKey, m.identity); nil != err {
				return err
			}
		}
		if err := s.debit(singleSig(m.publicKey), ud); nil != err {
			return err
		}
	}

	if err := s.withUd.Remove(n); nil != err {
		return err
	}
	return s.reval.Remove(n)
}

func (s *state) revertIdentities(b *blockrecord.Block, changes *wotChanges) error {
	n := b.Number

	// only the links this block created
	for k := len(b.Certifications) - 1; k >= 0; k -= 1 {
		l, err := s.link(b.Certifications[k])
		if nil != err {
			return err
		}
		created, found, err := s.certs.Get(l)
		if nil != err {
			return err
		}
		if !found || n != created {
			continue
		}
		if err := s.certs.Remove(l); nil != err {
			return err
		}
		changes.links = append(changes.links, l)
	}

	keys := leaving(b)
	for k := len(keys) - 1; k >= 0; k -= 1 {
		pk := keys[k]
		idty, err := s.identity(pk)
		if nil != err {
			return err
		}
		last := len(idty.LeftAt) - 1
		if idty.IsMember || last < 0 || n != idty.LeftAt[last] {
			continue
		}
		idty.IsMember = true
		idty.LeftAt = idty.LeftAt[:last]
		if err := s.identities.Upsert(pk, idty); nil != err {
			return err
		}
		changes.toggles = append(changes.toggles, toggle{id: idty.WotID, enabled: false})
	}

	for k := len(b.Joiners) - 1; k >= 0; k -= 1 {
		pk := b.Joiners[k]
		idty, err := s.identity(pk)
		if nil != err {
			return err
		}
		last := len(idty.JoinedAt) - 1
		if !idty.IsMember || last < 0 || n != idty.JoinedAt[last] {
			continue
		}
		idty.IsMember = false
		idty.JoinedAt = idty.JoinedAt[:last]
		if err := s.identities.Upsert(pk, idty); nil != err {
			return err
		}
		changes.toggles = append(changes.toggles, toggle{id: idty.WotID, enabled: true})
	}

	for k := len(b.Identities) - 1; k >= 0; k -= 1 {
		pk := b.Identities[k].PublicKey
		idty, err := s.identity(pk)
		if nil != err {
			return err
		}
		if err := s.identities.Remove(pk); nil != err {
			return err
		}
		changes.created = append(changes.created, idty.WotID)
	}
	return nil
}
