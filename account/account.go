// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account

import (
	"bytes"
	"encoding/base64"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"

	"github.com/uci-network/ucid/fault"
)

// miscellaneous constants
const (
	PublicKeyLength = ed25519.PublicKeySize
	SignatureLength = ed25519.SignatureSize

	// accepted text lengths of a base58 public key
	minimumBase58Length = 40
	maximumBase58Length = 44
)

// PublicKey - an ed25519 public key, represented as base58 text
type PublicKey [PublicKeyLength]byte

// Signature - an ed25519 signature, represented as base64 text
type Signature []byte

// PublicKeyFromBase58 - convert a base58 encoded string into a key
func PublicKeyFromBase58(s string) (PublicKey, error) {
	var pk PublicKey
	if len(s) < minimumBase58Length || len(s) > maximumBase58Length {
		return pk, fault.InvalidPublicKeyLength
	}
	decoded, err := base58.Decode(s)
	if nil != err {
		return pk, fault.CannotDecodePublicKey
	}

	// leading zero bytes may be dropped by some encoders
	if len(decoded) > PublicKeyLength {
		return pk, fault.InvalidPublicKeyLength
	}
	copy(pk[PublicKeyLength-len(decoded):], decoded)
	return pk, nil
}

// PublicKeyFromBytes - validate a binary key
func PublicKeyFromBytes(buffer []byte) (PublicKey, error) {
	var pk PublicKey
	if PublicKeyLength != len(buffer) {
		return pk, fault.InvalidPublicKeyLength
	}
	copy(pk[:], buffer)
	return pk, nil
}

// Verify - check an ed25519 signature over a message
func (pk PublicKey) Verify(message []byte, signature Signature) error {
	if SignatureLength != len(signature) {
		return fault.InvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(pk[:]), message, signature) {
		return fault.InvalidSignature
	}
	return nil
}

// Compare - byte order of two keys
func (pk PublicKey) Compare(other PublicKey) int {
	return bytes.Compare(pk[:], other[:])
}

// String - base58 text
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// MarshalText - base58 text for JSON
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText - base58 text from JSON
func (pk *PublicKey) UnmarshalText(s []byte) error {
	k, err := PublicKeyFromBase58(string(s))
	if nil != err {
		return err
	}
	*pk = k
	return nil
}

// SignatureFromBase64 - decode a base64 signature
func SignatureFromBase64(s string) (Signature, error) {
	buffer, err := base64.StdEncoding.DecodeString(s)
	if nil != err || SignatureLength != len(buffer) {
		return nil, fault.InvalidSignature
	}
	return Signature(buffer), nil
}

// String - base64 text
func (s Signature) String() string {
	return base64.StdEncoding.EncodeToString(s)
}

// MarshalText - base64 text for JSON
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText - base64 text from JSON
func (s *Signature) UnmarshalText(text []byte) error {
	if 0 == len(text) {
		*s = nil
		return nil
	}
	sig, err := SignatureFromBase64(string(text))
	if nil != err {
		return err
	}
	*s = sig
	return nil
}
