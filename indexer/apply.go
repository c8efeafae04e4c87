// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package indexer

import (
	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/blockrecord"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/schema"
	"github.com/uci-network/ucid/storage"
	"github.com/uci-network/ucid/transactionrecord"
)

func (s *state) applyBlock(b *blockrecord.Block, horizon uint32) (wotChanges, error) {
	changes := wotChanges{}
	n := b.Number

	// 1.
	if err := s.meta.Upsert(n, schema.NewBlockMeta(b)); nil != err {
		return changes, err
	}
	if err := s.times.Upsert(schema.BlockTime{MedianTime: b.MedianTime, Number: n}, storage.Unit{}); nil != err {
		return changes, err
	}

	// 2.
	if err := s.applyIdentities(b, &changes); nil != err {
		return changes, err
	}

	// 3.
	if err := s.applyDividend(b); nil != err {
		return changes, err
	}

	// 4. 5. 6.
	for _, t := range b.Transactions {
		if err := s.applyTransaction(b, t); nil != err {
			return changes, err
		}
	}

	// 7.
	return changes, s.prune(n, horizon)
}

func (s *state) applyIdentities(b *blockrecord.Block, changes *wotChanges) error {
	n := b.Number

	next, err := s.identities.Count()
	if nil != err {
		return err
	}
	for _, idty := range b.Identities {
		found, err := s.identities.Has(idty.PublicKey)
		if nil != err {
			return err
		}
		if found {
			return fault.Corrupted("identity: %s already exists", idty.PublicKey)
		}
		id := uint32(next)
		next += 1
		record := schema.Identity{
			Username: idty.Username,
			WotID:    id,
		}
		if err := s.identities.Upsert(idty.PublicKey, record); nil != err {
			return err
		}
		changes.created = append(changes.created, id)
	}

	for _, pk := range b.Joiners {
		idty, err := s.identity(pk)
		if nil != err {
			return err
		}
		if idty.IsMember {
			continue
		}
		idty.IsMember = true
		idty.JoinedAt = append(idty.JoinedAt, n)
		if err := s.identities.Upsert(pk, idty); nil != err {
			return err
		}
		changes.toggles = append(changes.toggles, toggle{id: idty.WotID, enabled: true})
	}

	// actives and leavers do not change membership
	for _, pk := range leaving(b) {
		idty, err := s.identity(pk)
		if nil != err {
			return err
		}
		if !idty.IsMember {
			continue
		}
		idty.IsMember = false
		idty.LeftAt = append(idty.LeftAt, n)
		if err := s.identities.Upsert(pk, idty); nil != err {
			return err
		}
		changes.toggles = append(changes.toggles, toggle{id: idty.WotID, enabled: false})
	}

	// renewals and certifications beyond the issuer's cap add nothing
	for _, cert := range b.Certifications {
		l, err := s.link(cert)
		if nil != err {
			return err
		}
		added, err := s.certify(l, n)
		if nil != err {
			return err
		}
		if added {
			changes.links = append(changes.links, l)
		}
	}
	return nil
}

// exclusions then revocations, in block order
func leaving(b *blockrecord.Block) []account.PublicKey {
	keys := make([]account.PublicKey, 0, len(b.Excluded)+len(b.Revoked))
	keys = append(keys, b.Excluded...)
	return append(keys, b.Revoked...)
}

func (s *state) link(cert blockrecord.Certification) (schema.Link, error) {
	from, err := s.identity(cert.From)
	if nil != err {
		return schema.Link{}, err
	}
	to, err := s.identity(cert.To)
	if nil != err {
		return schema.Link{}, err
	}
	return schema.Link{From: from.WotID, To: to.WotID}, nil
}

// record a new link under the same rules as the graph, the row holds
// the block that created it
func (s *state) certify(l schema.Link, n uint32) (bool, error) {
	if l.From == l.To {
		return false, nil
	}
	found, err := s.certs.Has(l)
	if nil != err || found {
		return false, err
	}
	issued := 0
	err = s.certs.Iter(storage.RangePrefix[schema.Link](schema.IssuerPrefix(l.From))).Keys(func(schema.Link) (bool, error) {
		issued += 1
		return true, nil
	})
	if nil != err {
		return false, err
	}
	if issued >= s.maxLinks {
		return false, nil
	}
	return true, s.certs.Upsert(l, n)
}

func (s *state) applyDividend(b *blockrecord.Block) error {
	ud, ok := b.UniversalDividend()
	if !ok {
		return nil
	}
	n := b.Number

	last, found, err := s.udAmountAt(n)
	if nil != err {
		return err
	}
	if !found || 0 != last.Cmp(ud) {
		if err := s.reval.Upsert(n, ud); nil != err {
			return err
		}
	}
	if err := s.withUd.Upsert(n, storage.Unit{}); nil != err {
		return err
	}

	members, err := s.members()
	if nil != err {
		return err
	}
	for _, m := range members {
		ref := transactionrecord.UdRef{PublicKey: m.publicKey, BlockNumber: n}
		if err := s.uds.Upsert(ref, storage.Unit{}); nil != err {
			return err
		}
		if nil == m.identity.FirstUd {
			first := n
			m.identity.FirstUd = &first
			if err := s.identities.Upsert(m.publicKey, m.identity); nil != err {
				return err
			}
		}
		if err := s.credit(singleSig(m.publicKey), ud); nil != err {
			return err
		}
	}
	return nil
}

func (s *state) applyTransaction(b *blockrecord.Block, t *transactionrecord.Transaction) error {
	n := b.Number

	found, err := s.txs.Has(t.Hash)
	if nil != err {
		return err
	}
	if found {
		return fault.Corrupted("transaction: %s already written", t.Hash)
	}

	for _, input := range t.Inputs {
		if err := s.consume(n, input); nil != err {
			return err
		}
	}

	for k, output := range t.Outputs {
		ws, err := output.Script()
		if nil != err {
			return err
		}
		text := ws.String()
		ref := transactionrecord.UtxoRef{TxHash: t.Hash, OutputIndex: uint32(k)}
		value := schema.UtxoValue{
			Script:       text,
			Amount:       output.Amount(),
			WrittenBlock: n,
			WrittenTime:  b.MedianTime,
		}
		if err := s.utxos.Upsert(ref, value); nil != err {
			return err
		}
		if err := s.gva.Upsert(gvaKey(value, ref), value.Amount); nil != err {
			return err
		}
		if err := s.credit(text, value.Amount); nil != err {
			return err
		}
	}

	record := schema.TxRecord{
		Tx:           t,
		WrittenBlock: b.Blockstamp(),
		WrittenTime:  b.MedianTime,
	}
	if err := s.txs.Upsert(t.Hash, record); nil != err {
		return err
	}
	issuers, recipients, err := walletScripts(t)
	if nil != err {
		return err
	}
	for _, ws := range issuers {
		if err := addHash(s.byIssuer, schema.WalletBlock{ScriptHash: ws.Hash(), BlockNumber: n}, t.Hash); nil != err {
			return err
		}
	}
	for _, ws := range recipients {
		if err := addHash(s.byRecipient, schema.WalletBlock{ScriptHash: ws.Hash(), BlockNumber: n}, t.Hash); nil != err {
			return err
		}
	}
	return addHash(s.byBlock, n, t.Hash)
}

// spend one input, keeping the consumed output for revert
func (s *state) consume(n uint32, input transactionrecord.Input) error {
	switch input.Kind {
	case transactionrecord.SourceUtxo:
		ref := input.UtxoRef()
		value, found, err := s.utxos.Get(ref)
		if nil != err {
			return err
		}
		if !found {
			return fault.Corrupted("input: %s  utxo not found", input)
		}
		if 0 != value.Amount.Cmp(input.Amount()) {
			return fault.Corrupted("input: %s  utxo amount: %s", input, value.Amount)
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
		key := schema.Consumed{BlockNumber: n, TxHash: ref.TxHash, OutputIndex: ref.OutputIndex}
		return s.consumed.Upsert(key, value)

	case transactionrecord.SourceUd:
		ref := input.UdRef()
		found, err := s.uds.Has(ref)
		if nil != err {
			return err
		}
		if !found {
			return fault.Corrupted("input: %s  dividend not found", input)
		}
		ud, found, err := s.udAmountAt(ref.BlockNumber)
		if nil != err {
			return err
		}
		if !found || 0 != ud.Cmp(input.Amount()) {
			return fault.Corrupted("input: %s  dividend amount: %s", input, ud)
		}
		if err := s.uds.Remove(ref); nil != err {
			return err
		}
		return s.debit(singleSig(ref.PublicKey), ud)

	default:
		return fault.InvalidInput
	}
}

// drop consumed outputs that can no longer be reverted
func (s *state) prune(n uint32, horizon uint32) error {
	if n <= horizon {
		return nil
	}
	keys := []schema.Consumed{}
	limit := schema.Consumed{BlockNumber: n - horizon}
	err := s.consumed.Iter(storage.RangeBelow(limit)).Keys(func(key schema.Consumed) (bool, error) {
		keys = append(keys, key)
		return true, nil
	})
	if nil != err {
		return err
	}
	for _, key := range keys {
		if err := s.consumed.Remove(key); nil != err {
			return err
		}
	}
	return nil
}
