// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/transactionrecord"
)

// longest JSON line accepted by the reader
const maximumLineLength = 64 * 1024 * 1024

// Identity - a newly published identity
type Identity struct {
	PublicKey account.PublicKey `json:"pubkey"`
	Username  string            `json:"uid"`
}

// Certification - a WoT link issued in a block
type Certification struct {
	From        account.PublicKey `json:"from"`
	To          account.PublicKey `json:"to"`
	BlockNumber uint32            `json:"blockNumber"`
}

// Block - a block already accepted by the consensus layer
//
// the engine does not verify hashes or signatures, the Raw map
// carries fields it does not understand
type Block struct {
	Version        uint32                           `json:"version"`
	Number         uint32                           `json:"number"`
	Currency       string                           `json:"currency"`
	Hash           digest.Hash                      `json:"hash"`
	InnerHash      digest.Hash                      `json:"innerHash"`
	PreviousHash   digest.Hash                      `json:"previousHash"`
	Issuer         account.PublicKey                `json:"issuer"`
	MedianTime     uint64                           `json:"medianTime"`
	Time           uint64                           `json:"time"`
	UnitBase       int32                            `json:"unitbase"`
	Dividend       *int64                           `json:"dividend,omitempty"`
	MembersCount   uint64                           `json:"membersCount"`
	Identities     []Identity                       `json:"identities"`
	Joiners        []account.PublicKey              `json:"joiners"`
	Actives        []account.PublicKey              `json:"actives"`
	Leavers        []account.PublicKey              `json:"leavers"`
	Revoked        []account.PublicKey              `json:"revoked"`
	Excluded       []account.PublicKey              `json:"excluded"`
	Certifications []Certification                  `json:"certifications"`
	Transactions   []*transactionrecord.Transaction `json:"transactions"`
	Signature      account.Signature                `json:"signature"`
	Raw            map[string]string                `json:"raw,omitempty"`
}

// Blockstamp - number and hash of the block
func (b *Block) Blockstamp() transactionrecord.Blockstamp {
	return transactionrecord.Blockstamp{Number: b.Number, Hash: b.Hash}
}

// UniversalDividend - amount emitted to each member, if any
func (b *Block) UniversalDividend() (amount.Amount, bool) {
	if nil == b.Dividend {
		return amount.Zero, false
	}
	return amount.New(*b.Dividend, b.UnitBase), true
}

// Check - structural consistency needed by the indexer
func (b *Block) Check() error {
	if 0 == b.Number && !b.PreviousHash.IsZero() {
		return fault.InvalidBlock
	}
	if 0 != b.Number && b.PreviousHash.IsZero() {
		return fault.InvalidBlock
	}
	if b.UnitBase < 0 {
		return fault.InvalidBlock
	}
	if nil != b.Dividend && *b.Dividend <= 0 {
		return fault.InvalidBlock
	}
	for _, tx := range b.Transactions {
		if nil == tx {
			return fault.InvalidBlock
		}
		tx.FillHash()
	}
	return nil
}

// Parse - one JSON block
func Parse(buffer []byte) (*Block, error) {
	b := &Block{}
	if err := json.Unmarshal(buffer, b); nil != err {
		return nil, fault.Deser("block", err)
	}
	if err := b.Check(); nil != err {
		return nil, err
	}
	return b, nil
}

// ReadLines - call f for every block of a JSON-lines stream, in order
func ReadLines(r io.Reader, f func(*Block) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maximumLineLength)
	for scanner.Scan() {
		line := scanner.Bytes()
		if 0 == len(line) {
			continue
		}
		b, err := Parse(line)
		if nil != err {
			return err
		}
		if err := f(b); nil != err {
			return err
		}
	}
	return scanner.Err()
}
