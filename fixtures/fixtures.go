// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fixtures - shared test setup: logging, keys, transactions
// and blocks
package fixtures

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"
	"golang.org/x/crypto/ed25519"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/blockrecord"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/transactionrecord"
)

// names used by tests
const (
	LogCategory = "testing"
	Currency    = "g1-test"
)

var logDirectory string

// SetupTestLogger - send all logging to a temporary directory
func SetupTestLogger() {
	dir, err := os.MkdirTemp("", "ucid-testing-")
	if nil != err {
		fmt.Println("create log dir with error: ", err)
		return
	}
	logDirectory = dir

	logging := logger.Configuration{
		Directory: dir,
		File:      fmt.Sprintf("%s.log", LogCategory),
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)
}

// TeardownTestLogger - stop logging and remove the files
func TeardownTestLogger() {
	logger.Finalise()
	if "" == logDirectory {
		return
	}
	if err := os.RemoveAll(filepath.Clean(logDirectory)); nil != err {
		fmt.Println("remove dir with error: ", err)
	}
	logDirectory = ""
}

// Key - a deterministic ed25519 key pair
type Key struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  account.PublicKey
}

// NewKey - key pair from a repeated seed byte
func NewKey(seed byte) Key {
	private := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	pk, _ := account.PublicKeyFromBytes(private.Public().(ed25519.PublicKey))
	return Key{PrivateKey: private, PublicKey: pk}
}

// Script - canonical single signature script of the key
func (k Key) Script() string {
	return "SIG(" + k.PublicKey.String() + ")"
}

// Sign - sign a transaction's signing text
func (k Key) Sign(tx *transactionrecord.Transaction) account.Signature {
	return ed25519.Sign(k.PrivateKey, []byte(tx.SigningText()))
}

// Output - one output to a key
func Output(value int64, base int32, to Key) transactionrecord.Output {
	return transactionrecord.Output{Value: value, Base: base, Condition: to.Script()}
}

// UdInput - spend the dividend of a key at a block
func UdInput(value int64, base int32, owner Key, blockNumber uint32) transactionrecord.Input {
	return transactionrecord.Input{
		Value:       value,
		Base:        base,
		Kind:        transactionrecord.SourceUd,
		PublicKey:   owner.PublicKey,
		BlockNumber: blockNumber,
	}
}

// UtxoInput - spend an output of an earlier transaction
func UtxoInput(value int64, base int32, txHash digest.Hash, index uint32) transactionrecord.Input {
	return transactionrecord.Input{
		Value:       value,
		Base:        base,
		Kind:        transactionrecord.SourceUtxo,
		TxHash:      txHash,
		OutputIndex: index,
	}
}

// Transaction - a signed single issuer transaction with its hash set
func Transaction(issuer Key, inputs []transactionrecord.Input, outputs []transactionrecord.Output, comment string) *transactionrecord.Transaction {
	unlocks := make([]transactionrecord.Unlock, len(inputs))
	for i := range inputs {
		unlocks[i] = transactionrecord.Unlock{Index: uint32(i), Proofs: []string{"SIG(0)"}}
	}
	tx := &transactionrecord.Transaction{
		Version:  transactionrecord.CurrentVersion,
		Currency: Currency,
		Issuers:  []account.PublicKey{issuer.PublicKey},
		Inputs:   inputs,
		Unlocks:  unlocks,
		Outputs:  outputs,
		Comment:  comment,
	}
	tx.Signatures = []account.Signature{issuer.Sign(tx)}
	tx.Hash = tx.ComputeHash()
	return tx
}

// Chain - builds consecutive blocks
type Chain struct {
	Issuer   Key
	Blocks   []*blockrecord.Block
	Interval uint64
	start    uint64
}

// NewChain - empty chain whose first block has the given median time
func NewChain(medianTime uint64) *Chain {
	return &Chain{
		Issuer:   NewKey(0xee),
		Interval: 300,
		start:    medianTime,
	}
}

// Next - a block following the last one, a nil dividend means no UD
func (c *Chain) Next(dividend *int64, base int32, txs ...*transactionrecord.Transaction) *blockrecord.Block {
	number := uint32(len(c.Blocks))
	b := &blockrecord.Block{
		Version:      transactionrecord.CurrentVersion,
		Number:       number,
		Currency:     Currency,
		Issuer:       c.Issuer.PublicKey,
		MedianTime:   c.start + uint64(number)*c.Interval,
		Time:         c.start + uint64(number)*c.Interval + 10,
		UnitBase:     base,
		Dividend:     dividend,
		Transactions: txs,
	}
	if number > 0 {
		b.PreviousHash = c.Blocks[number-1].Hash
	}
	if nil == b.Transactions {
		b.Transactions = []*transactionrecord.Transaction{}
	}
	b.InnerHash = digest.NewSHA256([]byte(fmt.Sprintf("inner %d", number)))
	b.Hash = digest.NewSHA256([]byte(fmt.Sprintf("%s block %d", Currency, number)))
	c.Blocks = append(c.Blocks, b)
	return b
}

// Dividend - pointer helper for Next
func Dividend(value int64) *int64 {
	return &value
}
