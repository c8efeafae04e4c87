// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/transactionrecord"
)

// key lengths
const (
	hashLength      = digest.Length
	publicKeyLength = account.PublicKeyLength
	numberLength    = 4
	indexLength     = 4
	timeLength      = 8

	UdKeyLength          = publicKeyLength + numberLength
	UtxoKeyLength        = hashLength + indexLength
	GvaUtxoKeyLength     = hashLength + numberLength + hashLength + indexLength
	ConsumedKeyLength    = numberLength + hashLength + indexLength
	WalletBlockKeyLength = hashLength + numberLength
	TimeKeyLength        = timeLength + numberLength
	LinkKeyLength        = numberLength + numberLength
)

// split the text form of a composite key
func fields(s string, n int) ([]string, error) {
	parts := strings.Split(s, ":")
	if n != len(parts) {
		return nil, fault.InvalidKey
	}
	return parts, nil
}

func parseNumber(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if nil != err {
		return 0, fault.InvalidKey
	}
	return uint32(n), nil
}

func formatNumber(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}

// HashKey - 32 byte hash keys, upper case hex text
type HashKey struct{}

// Encode - raw bytes
func (HashKey) Encode(h digest.Hash) ([]byte, error) {
	return append([]byte{}, h[:]...), nil
}

// Decode - raw bytes
func (HashKey) Decode(buffer []byte) (digest.Hash, error) {
	var h digest.Hash
	err := digest.FromBytes(&h, buffer)
	return h, err
}

// Format - hex
func (HashKey) Format(h digest.Hash) string {
	return h.String()
}

// Parse - hex
func (HashKey) Parse(s string) (digest.Hash, error) {
	return digest.FromHex(s)
}

// PublicKeyKey - 32 byte public key keys, base58 text
type PublicKeyKey struct{}

// Encode - raw bytes
func (PublicKeyKey) Encode(pk account.PublicKey) ([]byte, error) {
	return append([]byte{}, pk[:]...), nil
}

// Decode - raw bytes
func (PublicKeyKey) Decode(buffer []byte) (account.PublicKey, error) {
	return account.PublicKeyFromBytes(buffer)
}

// Format - base58
func (PublicKeyKey) Format(pk account.PublicKey) string {
	return pk.String()
}

// Parse - base58
func (PublicKeyKey) Parse(s string) (account.PublicKey, error) {
	return account.PublicKeyFromBase58(s)
}

// UdKey - public key ++ block number: one unspent dividend
type UdKey struct{}

// Encode - 36 bytes
func (UdKey) Encode(k transactionrecord.UdRef) ([]byte, error) {
	buffer := make([]byte, 0, UdKeyLength)
	buffer = append(buffer, k.PublicKey[:]...)
	return binary.BigEndian.AppendUint32(buffer, k.BlockNumber), nil
}

// Decode - 36 bytes
func (UdKey) Decode(buffer []byte) (transactionrecord.UdRef, error) {
	if UdKeyLength != len(buffer) {
		return transactionrecord.UdRef{}, fault.TruncatedValue
	}
	k := transactionrecord.UdRef{
		BlockNumber: binary.BigEndian.Uint32(buffer[publicKeyLength:]),
	}
	copy(k.PublicKey[:], buffer)
	return k, nil
}

// Format - PUBKEY:BN
func (UdKey) Format(k transactionrecord.UdRef) string {
	return k.PublicKey.String() + ":" + formatNumber(k.BlockNumber)
}

// Parse - PUBKEY:BN
func (UdKey) Parse(s string) (transactionrecord.UdRef, error) {
	parts, err := fields(s, 2)
	if nil != err {
		return transactionrecord.UdRef{}, err
	}
	pk, err := account.PublicKeyFromBase58(parts[0])
	if nil != err {
		return transactionrecord.UdRef{}, err
	}
	n, err := parseNumber(parts[1])
	return transactionrecord.UdRef{PublicKey: pk, BlockNumber: n}, err
}

// UdPrefix - key prefix selecting every dividend of a key
func UdPrefix(pk account.PublicKey) []byte {
	return append([]byte{}, pk[:]...)
}

// UtxoKey - tx hash ++ output index
type UtxoKey struct{}

// Encode - 36 bytes
func (UtxoKey) Encode(k transactionrecord.UtxoRef) ([]byte, error) {
	buffer := make([]byte, 0, UtxoKeyLength)
	buffer = append(buffer, k.TxHash[:]...)
	return binary.BigEndian.AppendUint32(buffer, k.OutputIndex), nil
}

// Decode - 36 bytes
func (UtxoKey) Decode(buffer []byte) (transactionrecord.UtxoRef, error) {
	if UtxoKeyLength != len(buffer) {
		return transactionrecord.UtxoRef{}, fault.TruncatedValue
	}
	k := transactionrecord.UtxoRef{
		OutputIndex: binary.BigEndian.Uint32(buffer[hashLength:]),
	}
	copy(k.TxHash[:], buffer)
	return k, nil
}

// Format - HASH:IDX
func (UtxoKey) Format(k transactionrecord.UtxoRef) string {
	return k.TxHash.String() + ":" + formatNumber(k.OutputIndex)
}

// Parse - HASH:IDX
func (UtxoKey) Parse(s string) (transactionrecord.UtxoRef, error) {
	parts, err := fields(s, 2)
	if nil != err {
		return transactionrecord.UtxoRef{}, err
	}
	h, err := digest.FromHex(parts[0])
	if nil != err {
		return transactionrecord.UtxoRef{}, err
	}
	n, err := parseNumber(parts[1])
	return transactionrecord.UtxoRef{TxHash: h, OutputIndex: n}, err
}

// GvaUtxo - position of an output in the per script index
type GvaUtxo struct {
	ScriptHash  digest.Hash
	BlockNumber uint32
	TxHash      digest.Hash
	OutputIndex uint32
}

// Ref - the output this entry indexes
func (g GvaUtxo) Ref() transactionrecord.UtxoRef {
	return transactionrecord.UtxoRef{TxHash: g.TxHash, OutputIndex: g.OutputIndex}
}

// GvaUtxoKey - script hash ++ block number ++ tx hash ++ output index
type GvaUtxoKey struct{}

// Encode - 72 bytes
func (GvaUtxoKey) Encode(k GvaUtxo) ([]byte, error) {
	buffer := make([]byte, 0, GvaUtxoKeyLength)
	buffer = append(buffer, k.ScriptHash[:]...)
	buffer = binary.BigEndian.AppendUint32(buffer, k.BlockNumber)
	buffer = append(buffer, k.TxHash[:]...)
	return binary.BigEndian.AppendUint32(buffer, k.OutputIndex), nil
}

// Decode - 72 bytes
func (GvaUtxoKey) Decode(buffer []byte) (GvaUtxo, error) {
	if GvaUtxoKeyLength != len(buffer) {
		return GvaUtxo{}, fault.TruncatedValue
	}
	k := GvaUtxo{
		BlockNumber: binary.BigEndian.Uint32(buffer[hashLength:]),
		OutputIndex: binary.BigEndian.Uint32(buffer[GvaUtxoKeyLength-indexLength:]),
	}
	copy(k.ScriptHash[:], buffer)
	copy(k.TxHash[:], buffer[hashLength+numberLength:])
	return k, nil
}

// Format - SCRIPTHASH:BN:HASH:IDX
func (GvaUtxoKey) Format(k GvaUtxo) string {
	return k.ScriptHash.String() + ":" + formatNumber(k.BlockNumber) + ":" + k.TxHash.String() + ":" + formatNumber(k.OutputIndex)
}

// Parse - SCRIPTHASH:BN:HASH:IDX
func (GvaUtxoKey) Parse(s string) (GvaUtxo, error) {
	parts, err := fields(s, 4)
	if nil != err {
		return GvaUtxo{}, err
	}
	var k GvaUtxo
	if k.ScriptHash, err = digest.FromHex(parts[0]); nil != err {
		return GvaUtxo{}, err
	}
	if k.BlockNumber, err = parseNumber(parts[1]); nil != err {
		return GvaUtxo{}, err
	}
	if k.TxHash, err = digest.FromHex(parts[2]); nil != err {
		return GvaUtxo{}, err
	}
	k.OutputIndex, err = parseNumber(parts[3])
	return k, err
}

// ScriptPrefix - key prefix selecting every entry of a script
func ScriptPrefix(scriptHash digest.Hash) []byte {
	return append([]byte{}, scriptHash[:]...)
}

// Consumed - a spent output remembered for revert
type Consumed struct {
	BlockNumber uint32
	TxHash      digest.Hash
	OutputIndex uint32
}

// Ref - the spent output
func (c Consumed) Ref() transactionrecord.UtxoRef {
	return transactionrecord.UtxoRef{TxHash: c.TxHash, OutputIndex: c.OutputIndex}
}

// ConsumedKey - spending block number ++ tx hash ++ output index
type ConsumedKey struct{}

// Encode - 40 bytes
func (ConsumedKey) Encode(k Consumed) ([]byte, error) {
	buffer := make([]byte, 0, ConsumedKeyLength)
	buffer = binary.BigEndian.AppendUint32(buffer, k.BlockNumber)
	buffer = append(buffer, k.TxHash[:]...)
	return binary.BigEndian.AppendUint32(buffer, k.OutputIndex), nil
}

// Decode - 40 bytes
func (ConsumedKey) Decode(buffer []byte) (Consumed, error) {
	if ConsumedKeyLength != len(buffer) {
		return Consumed{}, fault.TruncatedValue
	}
	k := Consumed{
		BlockNumber: binary.BigEndian.Uint32(buffer),
		OutputIndex: binary.BigEndian.Uint32(buffer[numberLength+hashLength:]),
	}
	copy(k.TxHash[:], buffer[numberLength:])
	return k, nil
}

// Format - BN:HASH:IDX
func (ConsumedKey) Format(k Consumed) string {
	return formatNumber(k.BlockNumber) + ":" + k.TxHash.String() + ":" + formatNumber(k.OutputIndex)
}

// Parse - BN:HASH:IDX
func (ConsumedKey) Parse(s string) (Consumed, error) {
	parts, err := fields(s, 3)
	if nil != err {
		return Consumed{}, err
	}
	var k Consumed
	if k.BlockNumber, err = parseNumber(parts[0]); nil != err {
		return Consumed{}, err
	}
	if k.TxHash, err = digest.FromHex(parts[1]); nil != err {
		return Consumed{}, err
	}
	k.OutputIndex, err = parseNumber(parts[2])
	return k, err
}

// BlockPrefix - key prefix selecting every entry of a block
func BlockPrefix(number uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, number)
}

// WalletBlock - a script hash at a block
type WalletBlock struct {
	ScriptHash  digest.Hash
	BlockNumber uint32
}

// WalletBlockKey - script hash ++ block number
type WalletBlockKey struct{}

// Encode - 36 bytes
func (WalletBlockKey) Encode(k WalletBlock) ([]byte, error) {
	buffer := make([]byte, 0, WalletBlockKeyLength)
	buffer = append(buffer, k.ScriptHash[:]...)
	return binary.BigEndian.AppendUint32(buffer, k.BlockNumber), nil
}

// Decode - 36 bytes
func (WalletBlockKey) Decode(buffer []byte) (WalletBlock, error) {
	if WalletBlockKeyLength != len(buffer) {
		return WalletBlock{}, fault.TruncatedValue
	}
	k := WalletBlock{
		BlockNumber: binary.BigEndian.Uint32(buffer[hashLength:]),
	}
	copy(k.ScriptHash[:], buffer)
	return k, nil
}

// Format - SCRIPTHASH:BN
func (WalletBlockKey) Format(k WalletBlock) string {
	return k.ScriptHash.String() + ":" + formatNumber(k.BlockNumber)
}

// Parse - SCRIPTHASH:BN
func (WalletBlockKey) Parse(s string) (WalletBlock, error) {
	parts, err := fields(s, 2)
	if nil != err {
		return WalletBlock{}, err
	}
	h, err := digest.FromHex(parts[0])
	if nil != err {
		return WalletBlock{}, err
	}
	n, err := parseNumber(parts[1])
	return WalletBlock{ScriptHash: h, BlockNumber: n}, err
}

// BlockTime - a block by median time
type BlockTime struct {
	MedianTime uint64
	Number     uint32
}

// TimeKey - median time ++ block number
type TimeKey struct{}

// Encode - 12 bytes
func (TimeKey) Encode(k BlockTime) ([]byte, error) {
	buffer := make([]byte, 0, TimeKeyLength)
	buffer = binary.BigEndian.AppendUint64(buffer, k.MedianTime)
	return binary.BigEndian.AppendUint32(buffer, k.Number), nil
}

// Decode - 12 bytes
func (TimeKey) Decode(buffer []byte) (BlockTime, error) {
	if TimeKeyLength != len(buffer) {
		return BlockTime{}, fault.TruncatedValue
	}
	return BlockTime{
		MedianTime: binary.BigEndian.Uint64(buffer),
		Number:     binary.BigEndian.Uint32(buffer[timeLength:]),
	}, nil
}

// Format - TIME:BN
func (TimeKey) Format(k BlockTime) string {
	return strconv.FormatUint(k.MedianTime, 10) + ":" + formatNumber(k.Number)
}

// Parse - TIME:BN
func (TimeKey) Parse(s string) (BlockTime, error) {
	parts, err := fields(s, 2)
	if nil != err {
		return BlockTime{}, err
	}
	t, err := strconv.ParseUint(parts[0], 10, 64)
	if nil != err {
		return BlockTime{}, fault.InvalidKey
	}
	n, err := parseNumber(parts[1])
	return BlockTime{MedianTime: t, Number: n}, err
}

// Link - a certification between two web of trust nodes
type Link struct {
	From uint32
	To   uint32
}

// LinkKey - issuer node ++ receiver node
type LinkKey struct{}

// Encode - 8 bytes
func (LinkKey) Encode(k Link) ([]byte, error) {
	buffer := make([]byte, 0, LinkKeyLength)
	buffer = binary.BigEndian.AppendUint32(buffer, k.From)
	return binary.BigEndian.AppendUint32(buffer, k.To), nil
}

// Decode - 8 bytes
func (LinkKey) Decode(buffer []byte) (Link, error) {
	if LinkKeyLength != len(buffer) {
		return Link{}, fault.TruncatedValue
	}
	return Link{
		From: binary.BigEndian.Uint32(buffer),
		To:   binary.BigEndian.Uint32(buffer[numberLength:]),
	}, nil
}

// Format - FROM:TO
func (LinkKey) Format(k Link) string {
	return formatNumber(k.From) + ":" + formatNumber(k.To)
}

// Parse - FROM:TO
func (LinkKey) Parse(s string) (Link, error) {
	parts, err := fields(s, 2)
	if nil != err {
		return Link{}, err
	}
	var k Link
	if k.From, err = parseNumber(parts[0]); nil != err {
		return Link{}, err
	}
	k.To, err = parseNumber(parts[1])
	return k, err
}

// IssuerPrefix - key prefix selecting every link issued by a node
func IssuerPrefix(from uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, from)
}
