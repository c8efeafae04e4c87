// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"bytes"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/blockrecord"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/transactionrecord"
)

// BlockMeta - the indexed part of a block header
type BlockMeta struct {
	Version      uint32            `json:"version"`
	Number       uint32            `json:"number"`
	Hash         digest.Hash       `json:"hash"`
	InnerHash    digest.Hash       `json:"innerHash"`
	PreviousHash digest.Hash       `json:"previousHash"`
	Issuer       account.PublicKey `json:"issuer"`
	MedianTime   uint64            `json:"medianTime"`
	Time         uint64            `json:"time"`
	UnitBase     int32             `json:"unitbase"`
	Dividend     *int64            `json:"dividend,omitempty"`
	MembersCount uint64            `json:"membersCount"`
	TxCount      uint32            `json:"txCount"`
}

// NewBlockMeta - metadata of a block
func NewBlockMeta(b *blockrecord.Block) BlockMeta {
	return BlockMeta{
		Version:      b.Version,
		Number:       b.Number,
		Hash:         b.Hash,
		InnerHash:    b.InnerHash,
		PreviousHash: b.PreviousHash,
		Issuer:       b.Issuer,
		MedianTime:   b.MedianTime,
		Time:         b.Time,
		UnitBase:     b.UnitBase,
		Dividend:     b.Dividend,
		MembersCount: b.MembersCount,
		TxCount:      uint32(len(b.Transactions)),
	}
}

// Blockstamp - number and hash
func (m BlockMeta) Blockstamp() transactionrecord.Blockstamp {
	return transactionrecord.Blockstamp{Number: m.Number, Hash: m.Hash}
}

// Identity - membership history of a public key
//
// JoinedAt and LeftAt are parallel: the i-th leave closes the i-th
// join, a member has one more join than leaves
type Identity struct {
	Username string   `json:"username"`
	IsMember bool     `json:"isMember"`
	WotID    uint32   `json:"wotId"`
	JoinedAt []uint32 `json:"joinedAt"`
	LeftAt   []uint32 `json:"leftAt"`
	FirstUd  *uint32  `json:"firstUd,omitempty"`
}

// MemberDuring - true if the key was a member at block number n
func (i Identity) MemberDuring(n uint32) bool {
	for k, joined := range i.JoinedAt {
		if n < joined {
			continue
		}
		if k >= len(i.LeftAt) || n < i.LeftAt[k] {
			return true
		}
	}
	return false
}

// UtxoValue - an unspent output
type UtxoValue struct {
	Script       string        `json:"script"`
	Amount       amount.Amount `json:"amount"`
	WrittenBlock uint32        `json:"writtenBlock"`
	WrittenTime  uint64        `json:"writtenTime"`
}

// TxRecord - a committed transaction
type TxRecord struct {
	Tx           *transactionrecord.Transaction `json:"tx"`
	WrittenBlock transactionrecord.Blockstamp  `json:"writtenBlock"`
	WrittenTime  uint64                        `json:"writtenTime"`
}

// PendingTx - a transaction in the mempool
type PendingTx struct {
	Tx           *transactionrecord.Transaction `json:"tx"`
	ReceivedTime int64                         `json:"receivedTime"`
}

// PendingOutput - an output of a pending transaction
type PendingOutput struct {
	TxHash      digest.Hash   `json:"txHash"`
	OutputIndex uint32        `json:"outputIndex"`
	Amount      amount.Amount `json:"amount"`
}

// Ref - the output as a future UTXO
func (p PendingOutput) Ref() transactionrecord.UtxoRef {
	return transactionrecord.UtxoRef{TxHash: p.TxHash, OutputIndex: p.OutputIndex}
}

// AmountCodec - fixed 12 byte amounts, readable in place
type AmountCodec struct{}

// Encode - value(8) ++ base(4)
func (AmountCodec) Encode(a amount.Amount) ([]byte, error) {
	return a.Bytes(), nil
}

// Decode - value(8) ++ base(4)
func (AmountCodec) Decode(buffer []byte) (amount.Amount, error) {
	return amount.FromBytes(buffer)
}

// HashList - a set of hashes stored as consecutive 32 byte elements
// in insertion order
type HashList []digest.Hash

// Contains - membership test
func (l HashList) Contains(h digest.Hash) bool {
	for _, e := range l {
		if e == h {
			return true
		}
	}
	return false
}

// Add - append if absent
func (l HashList) Add(h digest.Hash) HashList {
	if l.Contains(h) {
		return l
	}
	return append(l, h)
}

// Remove - drop every occurrence
func (l HashList) Remove(h digest.Hash) HashList {
	result := make(HashList, 0, len(l))
	for _, e := range l {
		if e != h {
			result = append(result, e)
		}
	}
	return result
}

// HashListCodec - concatenated raw hashes
type HashListCodec struct{}

// Encode - concatenation
func (HashListCodec) Encode(l HashList) ([]byte, error) {
	buffer := make([]byte, 0, len(l)*digest.Length)
	for _, h := range l {
		buffer = append(buffer, h[:]...)
	}
	return buffer, nil
}

// Decode - split into hashes
func (HashListCodec) Decode(buffer []byte) (HashList, error) {
	if 0 != len(buffer)%digest.Length {
		return nil, fault.TruncatedValue
	}
	l := make(HashList, 0, len(buffer)/digest.Length)
	for i := 0; i < len(buffer); i += digest.Length {
		var h digest.Hash
		copy(h[:], buffer[i:i+digest.Length])
		l = append(l, h)
	}
	return l, nil
}

// HashListContains - test an element of a stored list in place
func HashListContains(elements [][]byte, h digest.Hash) bool {
	for _, e := range elements {
		if bytes.Equal(e, h[:]) {
			return true
		}
	}
	return false
}
