// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/digest"
	"github.com/uci-network/ucid/fault"
	"github.com/uci-network/ucid/script"
)

func key(b byte) account.PublicKey {
	private := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{b}, ed25519.SeedSize))
	pk, _ := account.PublicKeyFromBytes(private.Public().(ed25519.PublicKey))
	return pk
}

func TestSingleSig(t *testing.T) {
	pk := key(1)
	s, err := script.Parse("SIG(" + pk.String() + ")")
	assert.Nil(t, err)

	single, ok := s.SingleSig()
	assert.True(t, ok, "should be single sig")
	assert.Equal(t, pk, single)
	assert.Equal(t, script.SingleSig(pk).String(), s.String())
	assert.Equal(t, digest.NewSHA3([]byte(s.String())), s.Hash())
}

func TestCanonicalText(t *testing.T) {
	a := key(1).String()
	b := key(2).String()
	h := digest.NewSHA256([]byte("secret")).String()

	tests := []struct {
		in  string
		out string
	}{
		{"SIG(" + a + ")&&SIG(" + b + ")", "SIG(" + a + ") && SIG(" + b + ")"},
		{"SIG(" + a + ") || (SIG(" + b + ") && CSV(3600))", "SIG(" + a + ") || (SIG(" + b + ") && CSV(3600))"},
		{"(SIG(" + a + ") || XHX(" + h + ")) && CLTV(1500000000)", "(SIG(" + a + ") || XHX(" + h + ")) && CLTV(1500000000)"},
		{"((SIG(" + a + ")))", "SIG(" + a + ")"},
	}
	for i, item := range tests {
		s, err := script.Parse(item.in)
		assert.Nil(t, err, "%d: parse %q", i, item.in)
		assert.Equal(t, item.out, s.String(), "%d: canonical text", i)

		again, err := script.Parse(s.String())
		assert.Nil(t, err)
		assert.Equal(t, s.String(), again.String(), "%d: text must be stable", i)
	}
}

func TestPublicKeys(t *testing.T) {
	a := key(1)
	b := key(2)
	s, err := script.Parse("SIG(" + a.String() + ") || (SIG(" + b.String() + ") && SIG(" + a.String() + "))")
	assert.Nil(t, err)
	assert.Equal(t, []account.PublicKey{a, b}, s.PublicKeys())

	_, ok := s.SingleSig()
	assert.False(t, ok)
}

func TestInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"SIG(abc)",
		"SIG(" + key(1).String(),
		"CSV(-1)",
		"SIG(" + key(1).String() + ") &&",
		"SIG(" + key(1).String() + ") extra",
		"XHX(1234)",
	} {
		_, err := script.Parse(in)
		assert.Equal(t, fault.InvalidScript, err, "input: %q", in)
	}
}

func TestSignableBy(t *testing.T) {
	a := key(1)
	b := key(2)
	c := key(3)
	h := digest.NewSHA256([]byte("secret")).String()

	tests := []struct {
		in   string
		keys []account.PublicKey
		ok   bool
	}{
		{"SIG(" + a.String() + ")", []account.PublicKey{a}, true},
		{"SIG(" + a.String() + ")", []account.PublicKey{c}, false},
		{"SIG(" + a.String() + ")", nil, false},
		{"SIG(" + a.String() + ") && SIG(" + b.String() + ")", []account.PublicKey{a}, false},
		{"SIG(" + a.String() + ") && SIG(" + b.String() + ")", []account.PublicKey{b, a}, true},
		{"SIG(" + a.String() + ") || SIG(" + b.String() + ")", []account.PublicKey{b}, true},
		{"SIG(" + a.String() + ") || (SIG(" + b.String() + ") && CSV(3600))", []account.PublicKey{b}, true},
		{"SIG(" + a.String() + ") && XHX(" + h + ")", []account.PublicKey{c}, false},
		{"XHX(" + h + ")", []account.PublicKey{c}, true},
	}
	for i, item := range tests {
		s, err := script.Parse(item.in)
		assert.Nil(t, err, "%d: parse %q", i, item.in)
		assert.Equal(t, item.ok, s.SignableBy(item.keys), "%d: %q", i, item.in)
	}
}
