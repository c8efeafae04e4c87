// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"strconv"
	"strings"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
)

// Op - kind of a condition node
type Op int

// all possible operations
const (
	Sig Op = iota
	Xhx
	Csv
	Cltv
	And
	Or
)

// Condition - one node of a wallet script
type Condition struct {
	Op        Op
	PublicKey account.PublicKey // Sig
	Hash      digest.Hash       // Xhx
	Value     uint64            // Csv seconds or Cltv timestamp
	Left      *Condition        // And, Or
	Right     *Condition        // And, Or
}

// WalletScript - a parsed condition with its canonical text
type WalletScript struct {
	root *Condition
	text string
}

// Parse - read the textual form of a condition script
func Parse(s string) (*WalletScript, error) {
	p := &parser{s: s}
	root, err := p.parseOr()
	if nil != err {
		return nil, err
	}
	p.skipSpace()
	if p.i != len(p.s) {
		return nil, fault.InvalidScript
	}
	return &WalletScript{root: root, text: format(root)}, nil
}

// SingleSig - the script SIG(pk)
func SingleSig(pk account.PublicKey) *WalletScript {
	root := &Condition{Op: Sig, PublicKey: pk}
	return &WalletScript{root: root, text: format(root)}
}

// Root - top condition node
func (w *WalletScript) Root() *Condition {
	return w.root
}

// String - canonical text
func (w *WalletScript) String() string {
	return w.text
}

// Hash - index key of the script
func (w *WalletScript) Hash() digest.Hash {
	return digest.NewSHA3([]byte(w.text))
}

// SingleSig - the key when the script is exactly SIG(pk)
func (w *WalletScript) SingleSig() (account.PublicKey, bool) {
	if Sig == w.root.Op {
		return w.root.PublicKey, true
	}
	return account.PublicKey{}, false
}

// PublicKeys - every key named in a SIG condition, in text order without duplicates
func (w *WalletScript) PublicKeys() []account.PublicKey {
	keys := []account.PublicKey{}
	seen := make(map[account.PublicKey]struct{})
	var walk func(c *Condition)
	walk = func(c *Condition) {
		switch c.Op {
		case Sig:
			if _, ok := seen[c.PublicKey]; !ok {
				seen[c.PublicKey] = struct{}{}
				keys = append(keys, c.PublicKey)
			}
		case And, Or:
			walk(c.Left)
			walk(c.Right)
		}
	}
	walk(w.root)
	return keys
}

// SignableBy - true if the SIG conditions can be met by signatures of
// the given keys
//
// hash and time locks are taken as satisfiable, their unlocks are not
// checked here
func (w *WalletScript) SignableBy(keys []account.PublicKey) bool {
	return signable(w.root, keys)
}

func signable(c *Condition, keys []account.PublicKey) bool {
	switch c.Op {
	case Sig:
		for _, k := range keys {
			if k == c.PublicKey {
				return true
			}
		}
		return false
	case And:
		return signable(c.Left, keys) && signable(c.Right, keys)
	case Or:
		return signable(c.Left, keys) || signable(c.Right, keys)
	}
	return true
}

// MarshalText - canonical text for JSON
func (w WalletScript) MarshalText() ([]byte, error) {
	return []byte(w.text), nil
}

// UnmarshalText - parse text from JSON
func (w *WalletScript) UnmarshalText(s []byte) error {
	parsed, err := Parse(string(s))
	if nil != err {
		return err
	}
	*w = *parsed
	return nil
}

// canonical text: binary operators separated by single spaces,
// parentheses only where a child binds looser than its parent
func format(c *Condition) string {
	switch c.Op {
	case Sig:
		return "SIG(" + c.PublicKey.String() + ")"
	case Xhx:
		return "XHX(" + c.Hash.String() + ")"
	case Csv:
		return "CSV(" + strconv.FormatUint(c.Value, 10) + ")"
	case Cltv:
		return "CLTV(" + strconv.FormatUint(c.Value, 10) + ")"
	case And:
		return formatChild(c.Left, And) + " && " + formatChild(c.Right, And)
	case Or:
		return formatChild(c.Left, Or) + " || " + formatChild(c.Right, Or)
	}
	return ""
}

func formatChild(c *Condition, parent Op) string {
	s := format(c)
	if (And == c.Op || Or == c.Op) && c.Op != parent {
		return "(" + s + ")"
	}
	return s
}

type parser struct {
	s string
	i int
}

func (p *parser) skipSpace() {
	for p.i < len(p.s) && ' ' == p.s[p.i] {
		p.i += 1
	}
}

func (p *parser) accept(token string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.s[p.i:], token) {
		p.i += len(token)
		return true
	}
	return false
}

func (p *parser) parseOr() (*Condition, error) {
	left, err := p.parseAnd()
	if nil != err {
		return nil, err
	}
	for p.accept("||") {
		right, err := p.parseAnd()
		if nil != err {
			return nil, err
		}
		left = &Condition{Op: Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (*Condition, error) {
	left, err := p.parseAtom()
	if nil != err {
		return nil, err
	}
	for p.accept("&&") {
		right, err := p.parseAtom()
		if nil != err {
			return nil, err
		}
		left = &Condition{Op: And, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAtom() (*Condition, error) {
	if p.accept("(") {
		c, err := p.parseOr()
		if nil != err {
			return nil, err
		}
		if !p.accept(")") {
			return nil, fault.InvalidScript
		}
		return c, nil
	}

	for _, name := range []string{"SIG", "XHX", "CSV", "CLTV"} {
		if !p.accept(name + "(") {
			continue
		}
		end := strings.IndexByte(p.s[p.i:], ')')
		if end < 0 {
			return nil, fault.InvalidScript
		}
		argument := p.s[p.i : p.i+end]
		p.i += end + 1
		return atom(name, argument)
	}
	return nil, fault.InvalidScript
}

func atom(name string, argument string) (*Condition, error) {
	switch name {
	case "SIG":
		pk, err := account.PublicKeyFromBase58(argument)
		if nil != err {
			return nil, fault.InvalidScript
		}
		return &Condition{Op: Sig, PublicKey: pk}, nil
	case "XHX":
		h, err := digest.FromHex(argument)
		if nil != err {
			return nil, fault.InvalidScript
		}
		return &Condition{Op: Xhx, Hash: h}, nil
	default:
		n, err := strconv.ParseUint(argument, 10, 64)
		if nil != err {
			return nil, fault.InvalidScript
		}
		op := Csv
		if "CLTV" == name {
			op = Cltv
		}
		return &Condition{Op: op, Value: n}, nil
	}
}
