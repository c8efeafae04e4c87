// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"strconv"
	"strings"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/amount"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/script"
)

// section headers of the compact document
const (
	headerVersion    = "Version: "
	headerType       = "Type: Transaction"
	headerCurrency   = "Currency: "
	headerBlockstamp = "Blockstamp: "
	headerLocktime   = "Locktime: "
	headerIssuers    = "Issuers:"
	headerInputs     = "Inputs:"
	headerUnlocks    = "Unlocks:"
	headerOutputs    = "Outputs:"
	headerComment    = "Comment: "
)

// SigningText - the document without signatures, the bytes covered by each signature
func (tx *Transaction) SigningText() string {
	var b strings.Builder
	b.WriteString(headerVersion + strconv.FormatUint(uint64(tx.Version), 10) + "\n")
	b.WriteString(headerType + "\n")
	b.WriteString(headerCurrency + tx.Currency + "\n")
	b.WriteString(headerBlockstamp + tx.Blockstamp.String() + "\n")
	b.WriteString(headerLocktime + strconv.FormatUint(tx.Locktime, 10) + "\n")
	b.WriteString(headerIssuers + "\n")
	for _, pk := range tx.Issuers {
		b.WriteString(pk.String() + "\n")
	}
	b.WriteString(headerInputs + "\n")
	for _, i := range tx.Inputs {
		b.WriteString(i.String() + "\n")
	}
	b.WriteString(headerUnlocks + "\n")
	for _, u := range tx.Unlocks {
		b.WriteString(u.String() + "\n")
	}
	b.WriteString(headerOutputs + "\n")
	for _, o := range tx.Outputs {
		b.WriteString(o.String() + "\n")
	}
	b.WriteString(headerComment + tx.Comment + "\n")
	return b.String()
}

// Document - the full signed document
func (tx *Transaction) Document() string {
	var b strings.Builder
	b.WriteString(tx.SigningText())
	for _, s := range tx.Signatures {
		b.WriteString(s.String() + "\n")
	}
	return b.String()
}

// ComputeHash - hash of the signed document
func (tx *Transaction) ComputeHash() digest.Hash {
	return digest.NewSHA256([]byte(tx.Document()))
}

// FillHash - set the hash if it is absent
func (tx *Transaction) FillHash() digest.Hash {
	if tx.Hash.IsZero() {
		tx.Hash = tx.ComputeHash()
	}
	return tx.Hash
}

// Parse - read a signed compact document
func Parse(document string) (*Transaction, error) {
	lines := strings.Split(strings.TrimSuffix(document, "\n"), "\n")
	n := 0
	next := func() (string, bool) {
		if n >= len(lines) {
			return "", false
		}
		n += 1
		return lines[n-1], true
	}
	field := func(prefix string) (string, error) {
		line, ok := next()
		if !ok || !strings.HasPrefix(line, prefix) {
			return "", fault.InvalidTransaction
		}
		return strings.TrimPrefix(line, prefix), nil
	}
	// lines until the next section header
	section := func(header string, stop string) ([]string, error) {
		if _, err := field(header); nil != err {
			return nil, err
		}
		items := []string{}
		for n < len(lines) && !strings.HasPrefix(lines[n], stop) {
			items = append(items, lines[n])
			n += 1
		}
		return items, nil
	}

	tx := &Transaction{}

	s, err := field(headerVersion)
	if nil != err {
		return nil, err
	}
	version, err := strconv.ParseUint(s, 10, 32)
	if nil != err {
		return nil, fault.InvalidTransaction
	}
	tx.Version = uint32(version)

	if _, err := field(headerType); nil != err {
		return nil, err
	}
	if tx.Currency, err = field(headerCurrency); nil != err {
		return nil, err
	}
	if s, err = field(headerBlockstamp); nil != err {
		return nil, err
	}
	if tx.Blockstamp, err = ParseBlockstamp(s); nil != err {
		return nil, err
	}
	if s, err = field(headerLocktime); nil != err {
		return nil, err
	}
	if tx.Locktime, err = strconv.ParseUint(s, 10, 64); nil != err {
		return nil, fault.InvalidTransaction
	}

	issuers, err := section(headerIssuers, headerInputs)
	if nil != err {
		return nil, err
	}
	for _, s := range issuers {
		pk, err := account.PublicKeyFromBase58(s)
		if nil != err {
			return nil, err
		}
		tx.Issuers = append(tx.Issuers, pk)
	}

	inputs, err := section(headerInputs, headerUnlocks)
	if nil != err {
		return nil, err
	}
	for _, s := range inputs {
		i, err := ParseInput(s)
		if nil != err {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, i)
	}

	unlocks, err := section(headerUnlocks, headerOutputs)
	if nil != err {
		return nil, err
	}
	for _, s := range unlocks {
		u, err := ParseUnlock(s)
		if nil != err {
			return nil, err
		}
		tx.Unlocks = append(tx.Unlocks, u)
	}

	outputs, err := section(headerOutputs, headerComment)
	if nil != err {
		return nil, err
	}
	for _, s := range outputs {
		o, err := ParseOutput(s)
		if nil != err {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, o)
	}

	if tx.Comment, err = field(headerComment); nil != err {
		return nil, err
	}

	for n < len(lines) {
		line, _ := next()
		sig, err := account.SignatureFromBase64(line)
		if nil != err {
			return nil, err
		}
		tx.Signatures = append(tx.Signatures, sig)
	}

	tx.Hash = tx.ComputeHash()
	return tx, nil
}

// Validate - structural checks and signature verification
func (tx *Transaction) Validate() error {
	if 0 == len(tx.Issuers) || 0 == len(tx.Inputs) || 0 == len(tx.Outputs) {
		return fault.InvalidTransaction
	}
	if len(tx.Unlocks) != len(tx.Inputs) {
		return fault.InvalidUnlock
	}
	if len(tx.Comment) > MaximumCommentLength {
		return fault.CommentTooLong
	}
	if len(tx.Signatures) != len(tx.Issuers) {
		return fault.InvalidSignature
	}

	for _, o := range tx.Outputs {
		if o.Value <= 0 {
			return fault.InvalidOutput
		}
		if _, err := script.Parse(o.Condition); nil != err {
			return err
		}
	}

	// no input may appear twice
	seen := make(map[string]struct{}, len(tx.Inputs))
	for _, i := range tx.Inputs {
		k := i.String()
		if _, ok := seen[k]; ok {
			return fault.InvalidInput
		}
		seen[k] = struct{}{}
	}

	if !tx.Hash.IsZero() && tx.Hash != tx.ComputeHash() {
		return fault.InvalidTransaction
	}

	message := []byte(tx.SigningText())
	for i, pk := range tx.Issuers {
		if err := pk.Verify(message, tx.Signatures[i]); nil != err {
			return err
		}
	}
	return nil
}

// InputsTotal - exact sum of all inputs
func (tx *Transaction) InputsTotal() (amount.Amount, error) {
	amounts := make([]amount.Amount, len(tx.Inputs))
	for i, input := range tx.Inputs {
		amounts[i] = input.Amount()
	}
	return amount.Sum(amounts...)
}

// OutputsTotal - exact sum of all outputs
func (tx *Transaction) OutputsTotal() (amount.Amount, error) {
	amounts := make([]amount.Amount, len(tx.Outputs))
	for i, output := range tx.Outputs {
		amounts[i] = output.Amount()
	}
	return amount.Sum(amounts...)
}

// IssuerScripts - SIG(issuer) text for each distinct issuer
func (tx *Transaction) IssuerScripts() []*script.WalletScript {
	scripts := make([]*script.WalletScript, 0, len(tx.Issuers))
	seen := make(map[account.PublicKey]struct{})
	for _, pk := range tx.Issuers {
		if _, ok := seen[pk]; ok {
			continue
		}
		seen[pk] = struct{}{}
		scripts = append(scripts, script.SingleSig(pk))
	}
	return scripts
}

// RecipientScripts - canonical output scripts that are not issuer scripts, without duplicates
func (tx *Transaction) RecipientScripts() ([]*script.WalletScript, error) {
	issuers := make(map[string]struct{})
	for _, s := range tx.IssuerScripts() {
		issuers[s.String()] = struct{}{}
	}
	scripts := []*script.WalletScript{}
	seen := make(map[string]struct{})
	for _, o := range tx.Outputs {
		s, err := o.Script()
		if nil != err {
			return nil, err
		}
		text := s.String()
		if _, ok := issuers[text]; ok {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// RecipientKeys - keys named by recipient scripts that are not issuers
func (tx *Transaction) RecipientKeys() ([]account.PublicKey, error) {
	scripts, err := tx.RecipientScripts()
	if nil != err {
		return nil, err
	}
	issuers := make(map[account.PublicKey]struct{})
	for _, pk := range tx.Issuers {
		issuers[pk] = struct{}{}
	}
	keys := []account.PublicKey{}
	seen := make(map[account.PublicKey]struct{})
	for _, s := range scripts {
		for _, pk := range s.PublicKeys() {
			if _, ok := issuers[pk]; ok {
				continue
			}
			if _, ok := seen[pk]; ok {
				continue
			}
			seen[pk] = struct{}{}
			keys = append(keys, pk)
		}
	}
	return keys, nil
}
