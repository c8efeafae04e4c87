// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/script"
)

// CurrentVersion - document version produced by this program
const CurrentVersion = 10

// MaximumCommentLength - bytes allowed in a comment
const MaximumCommentLength = 255

// SourceKind - what an input consumes
type SourceKind byte

// the two kinds of money source
const (
	SourceUtxo SourceKind = 'T'
	SourceUd   SourceKind = 'D'
)

// Blockstamp - (number, hash) pair identifying a block
type Blockstamp struct {
	Number uint32      `json:"number"`
	Hash   digest.Hash `json:"hash"`
}

// Input - one consumed source
//
// amounts keep the value and base as written so that the
// document text can be reproduced exactly
type Input struct {
	Value int64
	Base  int32
	Kind  SourceKind

	// SourceUtxo
	TxHash      digest.Hash
	OutputIndex uint32

	// SourceUd
	PublicKey   account.PublicKey
	BlockNumber uint32
}

// Unlock - proofs for one input
type Unlock struct {
	Index  uint32
	Proofs []string
}

// Output - one created source
type Output struct {
	Value     int64
	Base      int32
	Condition string
}

// Transaction - a transaction document
type Transaction struct {
	Version    uint32              `json:"version"`
	Currency   string              `json:"currency"`
	Blockstamp Blockstamp          `json:"blockstamp"`
	Locktime   uint64              `json:"locktime"`
	Issuers    []account.PublicKey `json:"issuers"`
	Inputs     []Input             `json:"inputs"`
	Unlocks    []Unlock            `json:"unlocks"`
	Outputs    []Output            `json:"outputs"`
	Comment    string              `json:"comment"`
	Signatures []account.Signature `json:"signatures"`
	Hash       digest.Hash         `json:"hash"`
}

// Amount - canonical amount of an input
func (i Input) Amount() amount.Amount {
	return amount.New(i.Value, i.Base)
}

// UtxoRef - key of a consumed output
type UtxoRef struct {
	TxHash      digest.Hash
	OutputIndex uint32
}

// UdRef - key of a consumed dividend
type UdRef struct {
	PublicKey   account.PublicKey
	BlockNumber uint32
}

// UtxoRef - the consumed output, only valid for SourceUtxo
func (i Input) UtxoRef() UtxoRef {
	return UtxoRef{TxHash: i.TxHash, OutputIndex: i.OutputIndex}
}

// UdRef - the consumed dividend, only valid for SourceUd
func (i Input) UdRef() UdRef {
	return UdRef{PublicKey: i.PublicKey, BlockNumber: i.BlockNumber}
}

// Amount - canonical amount of an output
func (o Output) Amount() amount.Amount {
	return amount.New(o.Value, o.Base)
}

// Script - parsed condition of an output
func (o Output) Script() (*script.WalletScript, error) {
	return script.Parse(o.Condition)
}

// String - BN-HASH
func (b Blockstamp) String() string {
	return strconv.FormatUint(uint64(b.Number), 10) + "-" + b.Hash.String()
}

// ParseBlockstamp - read BN-HASH
func ParseBlockstamp(s string) (Blockstamp, error) {
	parts := strings.SplitN(s, "-", 2)
	if 2 != len(parts) {
		return Blockstamp{}, fault.InvalidBlockstamp
	}
	n, err := strconv.ParseUint(parts[0], 10, 32)
	if nil != err {
		return Blockstamp{}, fault.InvalidBlockstamp
	}
	h, err := digest.FromHex(parts[1])
	if nil != err {
		return Blockstamp{}, fault.InvalidBlockstamp
	}
	return Blockstamp{Number: uint32(n), Hash: h}, nil
}

// MarshalText - BN-HASH
func (b Blockstamp) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText - BN-HASH
func (b *Blockstamp) UnmarshalText(s []byte) error {
	stamp, err := ParseBlockstamp(string(s))
	if nil != err {
		return err
	}
	*b = stamp
	return nil
}

// String - AMT:BASE:T:HASH:INDEX or AMT:BASE:D:PUBKEY:BN
func (i Input) String() string {
	switch i.Kind {
	case SourceUtxo:
		return fmt.Sprintf("%d:%d:T:%s:%d", i.Value, i.Base, i.TxHash, i.OutputIndex)
	default:
		return fmt.Sprintf("%d:%d:D:%s:%d", i.Value, i.Base, i.PublicKey, i.BlockNumber)
	}
}

// ParseInput - read the compact input form
func ParseInput(s string) (Input, error) {
	parts := strings.Split(s, ":")
	if 5 != len(parts) {
		return Input{}, fault.InvalidInput
	}
	value, base, err := parseAmount(parts[0], parts[1])
	if nil != err {
		return Input{}, fault.InvalidInput
	}
	n, err := strconv.ParseUint(parts[4], 10, 32)
	if nil != err {
		return Input{}, fault.InvalidInput
	}

	i := Input{Value: value, Base: base}
	switch parts[2] {
	case "T":
		h, err := digest.FromHex(parts[3])
		if nil != err {
			return Input{}, fault.InvalidInput
		}
		i.Kind = SourceUtxo
		i.TxHash = h
		i.OutputIndex = uint32(n)
	case "D":
		pk, err := account.PublicKeyFromBase58(parts[3])
		if nil != err {
			return Input{}, fault.InvalidInput
		}
		i.Kind = SourceUd
		i.PublicKey = pk
		i.BlockNumber = uint32(n)
	default:
		return Input{}, fault.InvalidInput
	}
	return i, nil
}

// MarshalText - compact form
func (i Input) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText - compact form
func (i *Input) UnmarshalText(s []byte) error {
	input, err := ParseInput(string(s))
	if nil != err {
		return err
	}
	*i = input
	return nil
}

// String - INDEX:PROOF PROOF...
func (u Unlock) String() string {
	return strconv.FormatUint(uint64(u.Index), 10) + ":" + strings.Join(u.Proofs, " ")
}

// ParseUnlock - read the compact unlock form
func ParseUnlock(s string) (Unlock, error) {
	parts := strings.SplitN(s, ":", 2)
	if 2 != len(parts) || "" == parts[1] {
		return Unlock{}, fault.InvalidUnlock
	}
	n, err := strconv.ParseUint(parts[0], 10, 32)
	if nil != err {
		return Unlock{}, fault.InvalidUnlock
	}
	proofs := strings.Fields(parts[1])
	for _, p := range proofs {
		if !strings.HasPrefix(p, "SIG(") && !strings.HasPrefix(p, "XHX(") {
			return Unlock{}, fault.InvalidUnlock
		}
		if !strings.HasSuffix(p, ")") {
			return Unlock{}, fault.InvalidUnlock
		}
	}
	return Unlock{Index: uint32(n), Proofs: proofs}, nil
}

// MarshalText - compact form
func (u Unlock) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText - compact form
func (u *Unlock) UnmarshalText(s []byte) error {
	unlock, err := ParseUnlock(string(s))
	if nil != err {
		return err
	}
	*u = unlock
	return nil
}

// String - AMT:BASE:CONDITION
func (o Output) String() string {
	return fmt.Sprintf("%d:%d:%s", o.Value, o.Base, o.Condition)
}

// ParseOutput - read the compact output form
func ParseOutput(s string) (Output, error) {
	parts := strings.SplitN(s, ":", 3)
	if 3 != len(parts) {
		return Output{}, fault.InvalidOutput
	}
	value, base, err := parseAmount(parts[0], parts[1])
	if nil != err || value <= 0 {
		return Output{}, fault.InvalidOutput
	}
	if _, err := script.Parse(parts[2]); nil != err {
		return Output{}, err
	}
	return Output{Value: value, Base: base, Condition: parts[2]}, nil
}

// MarshalText - compact form
func (o Output) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText - compact form
func (o *Output) UnmarshalText(s []byte) error {
	output, err := ParseOutput(string(s))
	if nil != err {
		return err
	}
	*o = output
	return nil
}

func parseAmount(v string, b string) (int64, int32, error) {
	value, err := strconv.ParseInt(v, 10, 64)
	if nil != err {
		return 0, 0, err
	}
	base, err := strconv.ParseUint(b, 10, 31)
	if nil != err {
		return 0, 0, err
	}
	return value, int32(base), nil
}
