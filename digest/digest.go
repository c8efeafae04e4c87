// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/uci-network/ucid/fault"
)

// Length - number of bytes in a digest
const Length = 32

// Hash - a 32 byte digest
//
// stored in the order produced by the hash function
// represented as upper case hex for print and JSON
// to convert to bytes just use h[:]
type Hash [Length]byte

// Zero - the all zero hash
var Zero Hash

// NewSHA256 - hash of a record, used for documents
func NewSHA256(record []byte) Hash {
	return sha256.Sum256(record)
}

// NewSHA3 - SHA3-256 of a record, used for script index keys
func NewSHA3(record []byte) Hash {
	return sha3.Sum256(record)
}

// IsZero - detect the all zero hash
func (h Hash) IsZero() bool {
	return h == Zero
}

// String - upper case hex for use by the fmt package (for %s)
func (h Hash) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// GoString - for %#v
func (h Hash) GoString() string {
	return "<HASH:" + h.String() + ">"
}

// Scan - convert hex representation for use by the fmt package scan routines
func (h *Hash) Scan(state fmt.ScanState, verb rune) error {
	token, err := state.Token(true, func(c rune) bool {
		return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
	})
	if nil != err {
		return err
	}
	return h.UnmarshalText(token)
}

// MarshalText - convert to upper case hex text
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText - convert hex text (either case) into a hash
func (h *Hash) UnmarshalText(s []byte) error {
	if hex.EncodedLen(Length) != len(s) {
		return fault.InvalidDigest
	}
	buffer := make([]byte, Length)
	if _, err := hex.Decode(buffer, s); nil != err {
		return fault.InvalidDigest
	}
	copy(h[:], buffer)
	return nil
}

// FromHex - parse a hex string
func FromHex(s string) (Hash, error) {
	var h Hash
	err := h.UnmarshalText([]byte(s))
	return h, err
}

// FromBytes - convert and validate binary byte slice to a hash
func FromBytes(h *Hash, buffer []byte) error {
	if Length != len(buffer) {
		return fault.InvalidDigest
	}
	copy(h[:], buffer)
	return nil
}
