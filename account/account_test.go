// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"

	"github.com/uci-network/ucid/account"
	"github.com/uci-network/ucid/fault"
)

func makeKey(seedByte byte) (account.PublicKey, ed25519.PrivateKey) {
	seed := bytes.Repeat([]byte{seedByte}, ed25519.SeedSize)
	private := ed25519.NewKeyFromSeed(seed)
	pk, _ := account.PublicKeyFromBytes(private.Public().(ed25519.PublicKey))
	return pk, private
}

func TestBase58RoundTrip(t *testing.T) {
	for i := byte(1); i < 20; i += 1 {
		pk, _ := makeKey(i)
		s := pk.String()
		assert.True(t, len(s) >= 40 && len(s) <= 44, "unexpected length: %d", len(s))

		back, err := account.PublicKeyFromBase58(s)
		assert.Nil(t, err, "decode: %s", s)
		assert.Equal(t, pk, back, "round trip: %s", s)
	}
}

func TestInvalidBase58(t *testing.T) {
	pk, _ := makeKey(7)
	s := pk.String()

	_, err := account.PublicKeyFromBase58(s[:20])
	assert.Equal(t, fault.InvalidPublicKeyLength, err, "truncated")

	_, err = account.PublicKeyFromBase58("0" + s[1:])
	assert.Equal(t, fault.CannotDecodePublicKey, err, "invalid character")
}

func TestVerify(t *testing.T) {
	pk, private := makeKey(3)
	message := []byte("Version: 10\nType: Transaction\n")
	signature := account.Signature(ed25519.Sign(private, message))

	assert.Nil(t, pk.Verify(message, signature), "valid signature")
	assert.Equal(t, fault.InvalidSignature, pk.Verify(append(message, 'x'), signature), "altered message")
	assert.Equal(t, fault.InvalidSignature, pk.Verify(message, signature[:10]), "short signature")

	other, _ := makeKey(4)
	assert.Equal(t, fault.InvalidSignature, other.Verify(message, signature), "wrong key")
}

func TestJSON(t *testing.T) {
	pk, private := makeKey(9)
	signature := account.Signature(ed25519.Sign(private, []byte("x")))

	item := struct {
		Key       account.PublicKey `json:"key"`
		Signature account.Signature `json:"signature"`
	}{pk, signature}

	buffer, err := json.Marshal(item)
	assert.Nil(t, err)

	back := item
	back.Key = account.PublicKey{}
	back.Signature = nil
	err = json.Unmarshal(buffer, &back)
	assert.Nil(t, err)
	assert.Equal(t, item, back)
}
